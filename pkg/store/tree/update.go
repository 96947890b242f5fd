package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

// Update implements store.Collection.
//
// Every document matched by q is moved to the requested parent and/or name,
// then its content is replaced when req.Content is set. A document whose
// destination equals its current path is skipped unless content is given.
//
// The batch is not atomic: when a destination is occupied the call stops
// with ErrDuplicateIdentifier and returns the number of documents already
// changed; those moves are kept.
func (s *Store) Update(ctx context.Context, q store.Query, req store.UpdateRequest) (changed int, err error) {
	defer s.observe("Update", time.Now(), &err)

	docs, err := s.find(ctx, q)
	if err != nil {
		return 0, err
	}

	// The content reader can be consumed once; later documents copy it from
	// the first written file.
	var written *store.FileData

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		parent := doc.ParentID
		if req.ParentID != nil {
			parent = *req.ParentID
		}
		name := doc.Name
		if req.Name != "" {
			name = req.Name
		}

		target, err := parent.Child(name)
		if err != nil {
			return changed, invalidIdentifier(err)
		}
		if !within(parent, target) {
			return changed, store.NewError(store.ErrInvalidArgument, "invalid document name", name)
		}

		moved := target != doc.ID
		if !moved && req.Content == nil {
			continue
		}
		if req.Content != nil && doc.IsDirectory() {
			return changed, store.NewError(store.ErrInvalidArgument,
				"cannot write content to a directory", doc.ID.Path())
		}

		srcAbs := s.resolve(doc.ID)
		dstAbs := s.resolve(target)

		if moved {
			ok, err := s.move(doc, target, srcAbs, dstAbs)
			if err != nil {
				return changed, err
			}
			if !ok {
				continue
			}
		}

		if req.Content != nil {
			if written == nil {
				err = store.WriteFile(dstAbs, req.Content)
				written = store.NewFileData(dstAbs)
			} else {
				err = written.CopyTo(dstAbs)
			}
			if err != nil {
				return changed, fmt.Errorf("failed to replace content of %q: %w", target.Path(), err)
			}
		}

		changed++
	}

	s.metrics.RecordDocuments(s.name, "Update", changed)
	return changed, nil
}

// move renames doc to target. ok is false when the source vanished, which
// happens when an ancestor matched by the same query was moved first.
func (s *Store) move(doc *store.Document, target docid.ID, srcAbs, dstAbs string) (ok bool, err error) {
	if doc.ID.IsRoot() {
		return false, store.NewError(store.ErrInvalidArgument, "cannot move the collection root", "")
	}
	if within(doc.ID, target) {
		return false, store.NewError(store.ErrInvalidArgument,
			"cannot move a directory into itself", target.Path())
	}

	srcFound, err := exists(srcAbs)
	if err != nil {
		return false, fmt.Errorf("failed to check %q: %w", doc.ID.Path(), err)
	}
	if !srcFound {
		logger.Debug("Update: %s vanished before move, skipping", doc.ID.Path())
		return false, nil
	}

	dstFound, err := exists(dstAbs)
	if err != nil {
		return false, fmt.Errorf("failed to check %q: %w", target.Path(), err)
	}
	if dstFound {
		return false, duplicate(target)
	}

	if err := s.ensureDir(filepath.Dir(dstAbs), target.Parent()); err != nil {
		return false, err
	}

	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return false, fmt.Errorf("failed to move %q to %q: %w", doc.ID.Path(), target.Path(), err)
	}

	logger.Debug("Moved %s to %s in collection %q", doc.ID.Path(), target.Path(), s.name)
	return true, nil
}
