// Package store defines the storage-agnostic document collection contract.
//
// A collection presents a set of documents that can be created, queried with
// equality filters, sort and skip/limit pagination, moved, removed, archived
// and snapshotted. Implementations live in sub-packages (see store/tree).
package store

import (
	"context"
	"io"

	"github.com/marmos91/dittodocs/pkg/docid"
)

// CreateRequest describes a new document.
type CreateRequest struct {
	// Name of the new entry. Empty means a generated unique name.
	Name string

	// ParentID is the containing directory. The zero value is the root.
	ParentID docid.ID

	// Mime set to DirectoryMime creates a directory.
	Mime string

	// Content is copied into the new file. Nil creates an empty file.
	Content io.Reader
}

// UpdateRequest describes a rename, a move and/or a content replacement
// applied to every matched document.
type UpdateRequest struct {
	// Name is the new name. Empty keeps the current name.
	Name string

	// ParentID is the new parent. Nil keeps the current parent.
	ParentID *docid.ID

	// Content replaces the file content after the move, if non-nil.
	Content io.Reader
}

// ListResult is the paginated list envelope.
type ListResult struct {
	Total int         `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
	Data  []*Document `json:"data"`
}

// Stats reports storage statistics for a collection.
type Stats struct {
	Documents   int   `json:"documents"`
	Directories int   `json:"directories"`
	Files       int   `json:"files"`
	TotalBytes  int64 `json:"total_bytes"`
}

// Collection is a queryable, paginated set of documents.
//
// Thread Safety:
// Implementations must be safe for concurrent use, but concurrent mutations
// of the same document are not serialized: the backing storage's own
// atomicity is the only guarantee.
type Collection interface {
	// NewID returns the identifier of a fresh generated name under the root.
	NewID() docid.ID

	// Get fetches a single document. A missing document is an ErrNotFound error.
	Get(ctx context.Context, id docid.ID) (*Document, error)

	// Create creates a file or directory.
	//
	// Returns ErrDuplicateIdentifier if the target already exists.
	Create(ctx context.Context, req CreateRequest) (*Document, error)

	// Find returns the documents matched by q. A missing id or parent yields
	// an empty result, never an error.
	Find(ctx context.Context, q Query) ([]*Document, error)

	// Count returns the number of documents matched by q, ignoring Skip and Limit.
	Count(ctx context.Context, q Query) (int, error)

	// List wraps Find in a pagination envelope.
	List(ctx context.Context, q Query) (*ListResult, error)

	// Update moves and/or rewrites every document matched by q and returns the
	// number of documents actually changed.
	//
	// A duplicate destination aborts the batch with ErrDuplicateIdentifier.
	// Moves already performed in the same call are not rolled back.
	Update(ctx context.Context, q Query, req UpdateRequest) (int, error)

	// Remove recursively deletes every document matched by q.
	Remove(ctx context.Context, q Query) (int, error)

	// Compress archives the document into a sibling "<name>.zip".
	Compress(ctx context.Context, id docid.ID) (*Document, error)

	// Extract unpacks a zip document into a sibling directory named after it.
	Extract(ctx context.Context, id docid.ID) (*Document, error)

	// Backup copies the whole collection to destination, which must not exist.
	Backup(ctx context.Context, destination string) error

	// Restore replaces the collection content with the copy at source.
	Restore(ctx context.Context, source string) error

	// Stats walks the collection and reports totals.
	Stats(ctx context.Context) (*Stats, error)

	// Root returns the absolute path of the collection root.
	Root() string
}
