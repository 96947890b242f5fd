package store

import (
	"strconv"
	"strings"
)

// Filter keys understood by collections.
const (
	FieldID        = "id"
	FieldParentID  = "parent_id"
	FieldName      = "name"
	FieldMime      = "mime"
	FieldSize      = "size"
	FieldUpdatedAt = "updated_at"
)

// Sort orders.
const (
	Ascending  = 1
	Descending = -1
)

// SortField is one key of a composite sort order.
type SortField struct {
	Field string `json:"field"`
	Order int    `json:"order"`
}

// Query selects documents.
//
// Filter holds equality filters keyed by document field. The id and
// parent_id keys accept anything docid.FromIdentifierLike understands.
// A query with neither id nor parent_id walks the whole tree.
type Query struct {
	Filter map[string]any
	Sort   []SortField

	// Skip is the number of leading results to drop. Negative values count as 0.
	Skip int

	// Limit caps the number of results after Skip. Nil or negative means unlimited.
	Limit *int
}

// Limit returns a pointer to n, for use as Query.Limit.
func Limit(n int) *int {
	return &n
}

// HasFilter reports whether key is present in the filter set.
func (q Query) HasFilter(key string) bool {
	_, ok := q.Filter[key]
	return ok
}

// IsDeep reports whether the query spans the whole tree.
func (q Query) IsDeep() bool {
	return !q.HasFilter(FieldID) && !q.HasFilter(FieldParentID)
}

// Window returns the normalized skip and the effective limit (skip + limit),
// the absolute cutoff used while accumulating results. unlimited is true when
// no cutoff applies.
func (q Query) Window() (skip int, effectiveLimit int, unlimited bool) {
	skip = max(q.Skip, 0)
	if q.Limit == nil || *q.Limit < 0 {
		return skip, 0, true
	}
	return skip, *q.Limit + skip, false
}

// Slice applies the query window to a fully accumulated result list.
func (q Query) Slice(docs []*Document) []*Document {
	skip, end, unlimited := q.Window()
	if skip >= len(docs) {
		return []*Document{}
	}
	if unlimited || end > len(docs) {
		end = len(docs)
	}
	return docs[skip:end]
}

// ParsePagination converts untyped skip/limit inputs (CLI flags, RPC params)
// into Query fields. Integers are read from the leading digits of the value;
// a malformed or negative skip becomes 0 and a malformed or negative limit
// means unlimited.
func ParsePagination(skip, limit string) (int, *int) {
	s, ok := parseLeadingInt(skip)
	if !ok || s < 0 {
		s = 0
	}

	l, ok := parseLeadingInt(limit)
	if !ok || l < 0 {
		return s, nil
	}
	return s, &l
}

func parseLeadingInt(value string) (int, bool) {
	value = strings.TrimSpace(value)

	end := 0
	if end < len(value) && (value[end] == '-' || value[end] == '+') {
		end++
	}
	digits := end
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
