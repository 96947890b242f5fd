package tree

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/marmos91/dittodocs/pkg/store"
)

// Stats implements store.Collection. The root itself is not counted.
// Symbolic links are not followed.
func (s *Store) Stats(ctx context.Context) (stats *store.Stats, err error) {
	defer s.observe("Stats", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dirs, files, bytes atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, s.root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if isNotExist(err) {
				return nil
			}
			return err
		}
		if p == s.root {
			return nil
		}

		if d.IsDir() {
			dirs.Add(1)
			return nil
		}

		files.Add(1)
		if info, err := d.Info(); err == nil {
			bytes.Add(info.Size())
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isNotExist(err) {
			return &store.Stats{}, nil
		}
		return nil, fmt.Errorf("failed to walk collection %q: %w", s.name, err)
	}

	return &store.Stats{
		Documents:   int(dirs.Load() + files.Load()),
		Directories: int(dirs.Load()),
		Files:       int(files.Load()),
		TotalBytes:  bytes.Load(),
	}, nil
}
