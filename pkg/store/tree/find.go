package tree

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

// Get implements store.Collection.
func (s *Store) Get(ctx context.Context, id docid.ID) (doc *store.Document, err error) {
	defer s.observe("Get", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.project(id)
}

// Find implements store.Collection.
//
// Resolution order:
//  1. An id filter projects that single entry; the other filters and the
//     skip/limit window then apply to it. A missing entry yields no results.
//  2. Otherwise the parent_id directory (default: root) is listed, filtered
//     and sorted. This is the level-local candidate set.
//  3. Without id and parent_id the walk is deep: directories in the result
//     list are expanded in list order, each expansion filtered and sorted on
//     its own and appended at the end, until skip+limit results are held.
//
// Sorting is per level only. Filters also prune descent: a directory that
// does not match is never expanded.
func (s *Store) Find(ctx context.Context, q store.Query) (docs []*store.Document, err error) {
	defer s.observe("Find", time.Now(), &err)

	docs, err = s.find(ctx, q)
	if err == nil {
		s.metrics.RecordDocuments(s.name, "Find", len(docs))
	}
	return docs, err
}

// Count implements store.Collection. It is a full traversal.
func (s *Store) Count(ctx context.Context, q store.Query) (n int, err error) {
	defer s.observe("Count", time.Now(), &err)

	q.Skip, q.Limit = 0, nil
	docs, err := s.find(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// List implements store.Collection.
func (s *Store) List(ctx context.Context, q store.Query) (result *store.ListResult, err error) {
	defer s.observe("List", time.Now(), &err)

	docs, err := s.find(ctx, q)
	if err != nil {
		return nil, err
	}

	all := q
	all.Skip, all.Limit = 0, nil
	total, err := s.find(ctx, all)
	if err != nil {
		return nil, err
	}

	skip, _, unlimited := q.Window()
	limit := -1
	if !unlimited {
		limit = *q.Limit
	}

	return &store.ListResult{
		Total: len(total),
		Skip:  skip,
		Limit: limit,
		Data:  docs,
	}, nil
}

func (s *Store) find(ctx context.Context, q store.Query) ([]*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if q.HasFilter(store.FieldID) {
		return s.findByID(q)
	}

	parent := docid.Root
	if q.HasFilter(store.FieldParentID) {
		var err error
		parent, err = docid.FromIdentifierLike(q.Filter[store.FieldParentID])
		if err != nil {
			logger.Debug("Find: ignoring invalid parent_id: %v", err)
			return []*store.Document{}, nil
		}
	}

	filters := compileFilters(q.Filter, store.FieldParentID)
	_, end, unlimited := q.Window()

	results, err := s.level(ctx, parent, filters, q.Sort)
	if err != nil {
		return nil, err
	}

	if q.IsDeep() {
		for cursor := 0; cursor < len(results); cursor++ {
			if !unlimited && len(results) >= end {
				break
			}
			if !results[cursor].IsDirectory() {
				continue
			}

			children, err := s.level(ctx, results[cursor].ID, filters, q.Sort)
			if err != nil {
				return nil, err
			}
			if !unlimited {
				children = children[:min(len(children), end-len(results))]
			}
			results = append(results, children...)
		}
	}

	return q.Slice(results), nil
}

// findByID is the direct lookup shortcut: no traversal, NotFound swallowed.
func (s *Store) findByID(q store.Query) ([]*store.Document, error) {
	id, err := docid.FromIdentifierLike(q.Filter[store.FieldID])
	if err != nil {
		logger.Debug("Find: ignoring invalid id: %v", err)
		return []*store.Document{}, nil
	}

	doc, err := s.project(id)
	if err != nil {
		if store.IsNotFound(err) {
			return []*store.Document{}, nil
		}
		return nil, err
	}

	if !matchAll(doc, compileFilters(q.Filter, store.FieldID)) {
		return []*store.Document{}, nil
	}
	return q.Slice([]*store.Document{doc}), nil
}

// level lists the immediate entries of dir, projected, filtered and sorted.
// A missing dir, or one that is a regular file, has no entries.
func (s *Store) level(ctx context.Context, dir docid.ID, filters []predicate, sortSpec []store.SortField) ([]*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.resolve(dir))
	if err != nil {
		if isNotExist(err) {
			return []*store.Document{}, nil
		}
		return nil, fmt.Errorf("failed to list %q: %w", dir.Path(), err)
	}

	docs := make([]*store.Document, 0, len(entries))
	for _, entry := range entries {
		child, err := dir.Child(entry.Name())
		if err != nil {
			logger.Debug("Skipping entry with unsafe name %q in %q", entry.Name(), dir.Path())
			continue
		}

		doc, err := s.project(child)
		if err != nil {
			// Removed between listing and stat.
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		if matchAll(doc, filters) {
			docs = append(docs, doc)
		}
	}

	if len(sortSpec) > 0 {
		slices.SortStableFunc(docs, func(a, b *store.Document) int {
			return compareDocuments(a, b, sortSpec)
		})
	}
	return docs, nil
}
