package tree

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/store"
)

// Remove implements store.Collection. Directories are removed recursively.
// Documents already gone (e.g. removed with a matched ancestor) are not counted.
func (s *Store) Remove(ctx context.Context, q store.Query) (removed int, err error) {
	defer s.observe("Remove", time.Now(), &err)

	docs, err := s.find(ctx, q)
	if err != nil {
		return 0, err
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		abs := s.resolve(doc.ID)
		found, err := exists(abs)
		if err != nil {
			return removed, fmt.Errorf("failed to check %q: %w", doc.ID.Path(), err)
		}
		if !found {
			continue
		}

		if err := os.RemoveAll(abs); err != nil {
			return removed, fmt.Errorf("failed to remove %q: %w", doc.ID.Path(), err)
		}

		logger.Debug("Removed %s from collection %q", doc.ID.Path(), s.name)
		removed++
	}

	s.metrics.RecordDocuments(s.name, "Remove", removed)
	return removed, nil
}
