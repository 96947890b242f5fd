package tree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

// Create implements store.Collection.
//
// Missing parent directories are created. The entry itself is created
// exclusively, so a concurrent create of the same path fails with
// ErrDuplicateIdentifier instead of overwriting.
func (s *Store) Create(ctx context.Context, req store.CreateRequest) (doc *store.Document, err error) {
	defer s.observe("Create", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = s.newName()
	}

	target, err := req.ParentID.Child(name)
	if err != nil {
		return nil, invalidIdentifier(err)
	}
	if !within(req.ParentID, target) {
		return nil, store.NewError(store.ErrInvalidArgument, "invalid document name", name)
	}

	abs := s.resolve(target)

	found, err := exists(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to check %q: %w", target.Path(), err)
	}
	if found {
		return nil, duplicate(target)
	}

	if err := s.ensureDir(filepath.Dir(abs), target.Parent()); err != nil {
		return nil, err
	}

	if req.Mime == store.DirectoryMime {
		err = os.Mkdir(abs, 0755)
	} else {
		err = createFile(abs, req.Content)
	}
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, duplicate(target)
		}
		return nil, fmt.Errorf("failed to create %q: %w", target.Path(), err)
	}

	logger.Debug("Created %s in collection %q", target.Path(), s.name)
	return s.project(target)
}

// createFile exclusively creates abs and copies content into it, if any.
// A failed write removes the partial file.
func createFile(abs string, content io.Reader) error {
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if content != nil {
		if _, err = io.Copy(f, content); err != nil {
			err = fmt.Errorf("failed to write content: %w", err)
		}
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(abs); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("Failed to remove partial file %s: %v", abs, rmErr)
		}
		return err
	}
	return nil
}

// ensureDir creates abs and its parents. A regular file in the way is
// reported as ErrNotDirectory.
func (s *Store) ensureDir(abs string, id docid.ID) error {
	err := os.MkdirAll(abs, 0755)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOTDIR) || errors.Is(err, fs.ErrExist) {
		return store.NewError(store.ErrNotDirectory, "parent is not a directory", id.Path())
	}
	return fmt.Errorf("failed to create directory %q: %w", id.Path(), err)
}

// within reports whether child lies strictly below parent.
func within(parent, child docid.ID) bool {
	if child.IsRoot() {
		return false
	}
	if parent.IsRoot() {
		return true
	}
	return strings.HasPrefix(child.Path(), parent.Path()+"/")
}

func duplicate(id docid.ID) error {
	return store.NewError(store.ErrDuplicateIdentifier,
		fmt.Sprintf("duplicate unique value %q", id.Path()), "")
}
