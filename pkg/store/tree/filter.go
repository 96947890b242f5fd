package tree

import (
	"cmp"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

// predicate is one compiled equality filter.
type predicate func(doc *store.Document) bool

// compileFilters turns an equality filter set into predicates. Keys in skip
// are left out. Unknown keys compile to a predicate matching nothing, as
// no document carries such a field.
func compileFilters(filter map[string]any, skip ...string) []predicate {
	predicates := make([]predicate, 0, len(filter))

next:
	for key, value := range filter {
		for _, s := range skip {
			if key == s {
				continue next
			}
		}
		predicates = append(predicates, compileFilter(key, value))
	}
	return predicates
}

func compileFilter(key string, value any) predicate {
	none := func(*store.Document) bool { return false }

	switch key {
	case store.FieldID, store.FieldParentID:
		want, err := docid.FromIdentifierLike(value)
		if err != nil {
			return none
		}
		if key == store.FieldID {
			return func(doc *store.Document) bool { return doc.ID == want }
		}
		return func(doc *store.Document) bool { return doc.ParentID == want }

	case store.FieldName, store.FieldMime:
		want, ok := value.(string)
		if !ok {
			return none
		}
		if key == store.FieldName {
			return func(doc *store.Document) bool { return doc.Name == want }
		}
		return func(doc *store.Document) bool { return doc.Mime == want }

	case store.FieldSize:
		want, ok := toInt64(value)
		if !ok {
			return none
		}
		return func(doc *store.Document) bool { return doc.Size == want }

	case store.FieldUpdatedAt:
		want, ok := toTime(value)
		if !ok {
			return none
		}
		return func(doc *store.Document) bool { return doc.UpdatedAt.Equal(want) }

	default:
		return none
	}
}

func matchAll(doc *store.Document, predicates []predicate) bool {
	for _, p := range predicates {
		if !p(doc) {
			return false
		}
	}
	return true
}

// toInt64 accepts Go integers, integral floats (decoded JSON), json.Number
// and decimal strings (CLI input).
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

// compareDocuments orders a and b by a composite sort order.
// Fields are evaluated in order; unknown fields compare equal.
func compareDocuments(a, b *store.Document, spec []store.SortField) int {
	for _, field := range spec {
		var c int
		switch field.Field {
		case store.FieldName:
			c = cmp.Compare(a.Name, b.Name)
		case store.FieldMime:
			c = cmp.Compare(a.Mime, b.Mime)
		case store.FieldSize:
			c = cmp.Compare(a.Size, b.Size)
		case store.FieldUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case store.FieldID:
			c = cmp.Compare(a.ID.Path(), b.ID.Path())
		case store.FieldParentID:
			c = cmp.Compare(a.ParentID.Path(), b.ParentID.Path())
		}

		if c != 0 {
			if field.Order < 0 {
				return -c
			}
			return c
		}
	}
	return 0
}
