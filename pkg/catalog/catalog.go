// Package catalog records which collections have been registered.
//
// A Catalog stores one Entry per collection name. The registry writes an entry
// the first time it resolves a schema and refreshes it whenever the schema
// content changes. Entries outlive the process when a persistent implementation
// (badger) is configured, so "dittodocs collections" can list what exists on a
// storage root without walking it.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrEntryNotFound is returned by Get and Delete when no entry has the name.
var ErrEntryNotFound = errors.New("catalog entry not found")

// Entry describes one registered collection.
type Entry struct {
	// Name is the schema's _name value and the collection directory name.
	Name string `json:"name"`

	// SchemaHash is the hex sha256 of the canonical schema encoding.
	SchemaHash string `json:"schema_hash"`

	// Root is the absolute collection root on disk.
	Root string `json:"root"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Catalog persists collection entries.
//
// Implementations must be safe for concurrent use.
type Catalog interface {
	// Get returns the entry registered under name or ErrEntryNotFound.
	Get(ctx context.Context, name string) (*Entry, error)

	// Put inserts or replaces the entry keyed by entry.Name.
	//
	// CreatedAt of an existing entry is preserved; a zero CreatedAt on a new
	// entry is set to UpdatedAt.
	Put(ctx context.Context, entry *Entry) error

	// Delete removes the entry or returns ErrEntryNotFound.
	Delete(ctx context.Context, name string) error

	// List returns every entry sorted by name.
	List(ctx context.Context) ([]*Entry, error)

	// Close releases resources held by the catalog.
	Close() error
}

// Merge prepares entry for storage on top of previous (which may be nil).
// It returns a copy so callers can keep mutating their value.
func Merge(previous, entry *Entry) *Entry {
	merged := *entry
	if merged.UpdatedAt.IsZero() {
		merged.UpdatedAt = time.Now().UTC()
	}
	switch {
	case previous != nil:
		merged.CreatedAt = previous.CreatedAt
	case merged.CreatedAt.IsZero():
		merged.CreatedAt = merged.UpdatedAt
	}
	return &merged
}
