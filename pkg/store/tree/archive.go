package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

const zipExt = ".zip"

// Compress implements store.Collection. The archive is created next to the
// document as "<name>.zip".
func (s *Store) Compress(ctx context.Context, id docid.ID) (doc *store.Document, err error) {
	defer s.observe("Compress", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.IsRoot() {
		return nil, store.NewError(store.ErrInvalidArgument, "cannot compress the collection root", "")
	}

	src, err := s.project(id)
	if err != nil {
		return nil, err
	}

	target, err := src.ParentID.Child(src.Name + zipExt)
	if err != nil {
		return nil, invalidIdentifier(err)
	}
	if err := s.mustNotExist(target); err != nil {
		return nil, err
	}

	if err := s.archive.Compress(ctx, s.resolve(id), s.resolve(target)); err != nil {
		return nil, archiveFailed("compress", id.Path(), err)
	}
	return s.project(target)
}

// Extract implements store.Collection. A "<stem>.zip" document is unpacked
// into a new sibling directory "<stem>".
func (s *Store) Extract(ctx context.Context, id docid.ID) (doc *store.Document, err error) {
	defer s.observe("Extract", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := s.project(id)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(src.Name)
	stem := strings.TrimSuffix(src.Name, ext)
	if src.IsDirectory() || !strings.EqualFold(ext, zipExt) || stem == "" {
		return nil, store.NewError(store.ErrInvalidArgument, "not a zip archive", id.Path())
	}

	target, err := src.ParentID.Child(stem)
	if err != nil {
		return nil, invalidIdentifier(err)
	}
	if err := s.mustNotExist(target); err != nil {
		return nil, err
	}

	if err := s.archive.Extract(ctx, s.resolve(id), s.resolve(target)); err != nil {
		return nil, archiveFailed("extract", id.Path(), err)
	}
	return s.project(target)
}

// Backup implements store.Collection.
//
// A destination handled by the configured Snapshotter (e.g. "s3://bucket/key.zip")
// receives a zip of the collection. Any other destination is a local path
// that must not exist and receives a recursive copy.
func (s *Store) Backup(ctx context.Context, destination string) (err error) {
	defer s.observe("Backup", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.snapshots != nil && s.snapshots.Handles(destination) {
		return s.uploadSnapshot(ctx, destination)
	}

	dst, err := filepath.Abs(destination)
	if err != nil {
		return store.NewError(store.ErrInvalidArgument, err.Error(), destination)
	}
	found, err := exists(dst)
	if err != nil {
		return fmt.Errorf("failed to check %q: %w", dst, err)
	}
	if found {
		return store.NewError(store.ErrConflictExists, "backup destination already exists", dst)
	}

	if err := s.archive.Copy(ctx, s.root, dst); err != nil {
		return archiveFailed("backup", dst, err)
	}

	logger.Info("Backed up collection %q to %s", s.name, dst)
	return nil
}

// Restore implements store.Collection. The current content of the
// collection is replaced by the snapshot at source.
func (s *Store) Restore(ctx context.Context, source string) (err error) {
	defer s.observe("Restore", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.snapshots != nil && s.snapshots.Handles(source) {
		return s.downloadSnapshot(ctx, source)
	}

	src, err := filepath.Abs(source)
	if err != nil {
		return store.NewError(store.ErrInvalidArgument, err.Error(), source)
	}
	info, err := os.Stat(src)
	if err != nil {
		if isNotExist(err) {
			return store.NewError(store.ErrNotFound, "restore source not found", src)
		}
		return fmt.Errorf("failed to stat %q: %w", src, err)
	}
	if !info.IsDir() {
		return store.NewError(store.ErrNotDirectory, "restore source is not a directory", src)
	}

	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to clear collection %q: %w", s.name, err)
	}
	if err := s.archive.Copy(ctx, src, s.root); err != nil {
		return archiveFailed("restore", src, err)
	}

	logger.Info("Restored collection %q from %s", s.name, src)
	return nil
}

func (s *Store) uploadSnapshot(ctx context.Context, destination string) error {
	tmp, err := os.MkdirTemp("", "dittodocs-backup-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	archivePath := filepath.Join(tmp, s.name+zipExt)
	if err := s.archive.Compress(ctx, s.root, archivePath); err != nil {
		return archiveFailed("backup", destination, err)
	}

	if err := s.snapshots.Upload(ctx, archivePath, destination); err != nil {
		return err
	}

	logger.Info("Backed up collection %q to %s", s.name, destination)
	return nil
}

// downloadSnapshot stages the extraction next to the root so the final
// swap is a same-device rename.
func (s *Store) downloadSnapshot(ctx context.Context, source string) error {
	tmp, err := os.MkdirTemp(filepath.Dir(s.root), StagingPattern)
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	archivePath := filepath.Join(tmp, "snapshot"+zipExt)
	if err := s.snapshots.Download(ctx, source, archivePath); err != nil {
		return err
	}

	extracted := filepath.Join(tmp, "extracted")
	if err := s.archive.Extract(ctx, archivePath, extracted); err != nil {
		return archiveFailed("restore", source, err)
	}

	// Snapshots hold a single top-level directory named after the
	// collection that was backed up.
	entries, err := os.ReadDir(extracted)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return store.NewError(store.ErrArchiveFailed, "snapshot must contain exactly one directory", source)
	}

	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to clear collection %q: %w", s.name, err)
	}
	if err := os.Rename(filepath.Join(extracted, entries[0].Name()), s.root); err != nil {
		return fmt.Errorf("failed to install snapshot: %w", err)
	}

	logger.Info("Restored collection %q from %s", s.name, source)
	return nil
}

func (s *Store) mustNotExist(id docid.ID) error {
	found, err := exists(s.resolve(id))
	if err != nil {
		return fmt.Errorf("failed to check %q: %w", id.Path(), err)
	}
	if found {
		return store.NewError(store.ErrConflictExists, "target already exists", id.Path())
	}
	return nil
}

func archiveFailed(operation, path string, err error) error {
	return store.NewError(store.ErrArchiveFailed, fmt.Sprintf("%s failed: %v", operation, err), path)
}
