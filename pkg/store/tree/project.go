package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

// project builds the Document for id from a fresh stat of its entry.
//
// Returns an ErrNotFound StoreError when the entry does not exist.
func (s *Store) project(id docid.ID) (*store.Document, error) {
	abs := s.resolve(id)

	info, err := os.Stat(abs)
	if err != nil {
		if isNotExist(err) {
			return nil, store.NewError(store.ErrNotFound, "document not found", id.Path())
		}
		return nil, fmt.Errorf("failed to stat %q: %w", id.Path(), err)
	}

	doc := &store.Document{
		ID:        id,
		Name:      id.Name(),
		ParentID:  id.Parent(),
		UpdatedAt: updatedAt(abs, info),
	}

	if info.IsDir() {
		doc.Mime = store.DirectoryMime
		return doc, nil
	}

	doc.Mime = s.mimeOf(abs)
	doc.Size = info.Size()
	doc.Data = store.NewFileData(abs)
	return doc, nil
}

// exists reports whether an entry (of any kind, dangling symlinks included)
// occupies abs.
func exists(abs string) (bool, error) {
	_, err := os.Lstat(abs)
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, err
}

// isNotExist treats a path traversing a regular file like a missing path.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func invalidIdentifier(err error) error {
	return &store.StoreError{
		Code:    store.ErrInvalidIdentifier,
		Message: err.Error(),
	}
}
