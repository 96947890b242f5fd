// Package tree implements store.Collection on top of a host directory tree.
//
// Files and directories are documents, directory nesting is the record
// hierarchy and file content is the document payload. There is no index and
// no metadata store: every call re-reads the filesystem.
//
// Path Layout:
//
//	<root>/                  collection root (identifier docid.Root)
//	<root>/docs/             directory document, mime "inode/directory"
//	<root>/docs/report.pdf   file document, mime inferred from extension
//
// Thread Safety:
// A Store holds no mutable state and is safe for concurrent use. Concurrent
// mutations are not serialized: the filesystem's own atomicity for single
// calls (mkdir, rename, exclusive create) is the only safety net, so a
// failing write must be treated as the conflict signal.
package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/archive"
	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/metrics"
	"github.com/marmos91/dittodocs/pkg/store"
)

// StagingPattern names the temporary directories a remote restore creates
// next to the collection root. Leftovers from interrupted restores are
// removed by the gc package.
const StagingPattern = ".dittodocs-restore-*"

// Snapshotter moves snapshot archives to and from a remote location.
type Snapshotter interface {
	// Handles reports whether location is a remote location of this snapshotter.
	Handles(location string) bool
	Upload(ctx context.Context, localPath, location string) error
	Download(ctx context.Context, location, localPath string) error
}

// Store is a tree-backed document collection.
type Store struct {
	root      string
	name      string
	sniffMime bool
	newName   func() string
	metrics   metrics.StoreMetrics
	archive   *archive.Bridge
	snapshots Snapshotter
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records every operation in m.
func WithMetrics(m metrics.StoreMetrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithArchive uses bridge for compress, extract, backup and restore.
func WithArchive(bridge *archive.Bridge) Option {
	return func(s *Store) {
		if bridge != nil {
			s.archive = bridge
		}
	}
}

// WithSnapshots enables remote backup/restore locations handled by sn.
func WithSnapshots(sn Snapshotter) Option {
	return func(s *Store) {
		s.snapshots = sn
	}
}

// WithMimeSniffing enables content detection for files whose extension has
// no registered mime type.
func WithMimeSniffing(enabled bool) Option {
	return func(s *Store) {
		s.sniffMime = enabled
	}
}

// WithNameGenerator overrides the generator of default document names.
func WithNameGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newName = fn
		}
	}
}

// New opens the collection rooted at root, creating the directory if absent.
func New(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection root %q: %w", root, err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection root %q: %w", abs, err)
	}

	s := &Store{
		root:    abs,
		name:    filepath.Base(abs),
		newName: generateName,
		metrics: metrics.NewNoopStoreMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.archive == nil {
		s.archive = archive.New(archive.Config{}, nil, s.metrics)
	}

	logger.Debug("Opened tree collection %q at %s", s.name, s.root)
	return s, nil
}

var _ store.Collection = (*Store)(nil)

// generateName returns a time-ordered unique name.
func generateName() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Root implements store.Collection.
func (s *Store) Root() string {
	return s.root
}

// NewID implements store.Collection.
func (s *Store) NewID() docid.ID {
	id, err := docid.Root.Child(s.newName())
	if err != nil {
		// Generated names never contain reserved characters.
		panic(err)
	}
	return id
}

// resolve maps an identifier to its absolute path under the root.
func (s *Store) resolve(id docid.ID) string {
	return filepath.Join(s.root, filepath.FromSlash(id.Path()))
}

// observe records an operation outcome. Use as
//
//	defer s.observe("Find", time.Now(), &err)
func (s *Store) observe(operation string, start time.Time, err *error) {
	s.metrics.RecordOperation(s.name, operation, time.Since(start), *err)
}
