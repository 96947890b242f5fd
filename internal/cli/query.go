package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodocs/pkg/store"
)

// queryFlags are the flags shared by commands that select documents.
type queryFlags struct {
	filters []string
	sorts   []string
	skip    string
	limit   string
}

func (q *queryFlags) register(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringArrayVarP(&q.filters, "filter", "f", nil, "Filter as key=value (repeatable)")
	if paging {
		cmd.Flags().StringArrayVarP(&q.sorts, "sort", "s", nil, "Sort as field[:asc|:desc] (repeatable, applied in order)")
		cmd.Flags().StringVar(&q.skip, "skip", "", "Number of documents to skip")
		cmd.Flags().StringVar(&q.limit, "limit", "", "Maximum number of documents to return")
	}
}

// build converts the flags into a store.Query.
func (q *queryFlags) build() (store.Query, error) {
	filter, err := parseFilters(q.filters)
	if err != nil {
		return store.Query{}, err
	}
	sort, err := parseSort(q.sorts)
	if err != nil {
		return store.Query{}, err
	}
	skip, limit := store.ParsePagination(q.skip, q.limit)

	return store.Query{Filter: filter, Sort: sort, Skip: skip, Limit: limit}, nil
}

// parseFilters turns key=value pairs into a filter map. Values stay strings:
// the query engine converts size and updated_at itself.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}
		filter[key] = value
	}
	return filter, nil
}

func parseSort(specs []string) ([]store.SortField, error) {
	var sort []store.SortField
	for _, spec := range specs {
		field, direction, _ := strings.Cut(spec, ":")
		order := store.Ascending
		switch strings.ToLower(direction) {
		case "", "asc", "1":
		case "desc", "-1":
			order = store.Descending
		default:
			return nil, fmt.Errorf("invalid sort direction %q in %q", direction, spec)
		}
		if field == "" {
			return nil, fmt.Errorf("invalid sort %q: missing field", spec)
		}
		sort = append(sort, store.SortField{Field: field, Order: order})
	}
	return sort, nil
}
