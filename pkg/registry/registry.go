// Package registry resolves schemas to collection handles.
//
// A schema names its collection through the "_name" key. The Registry maps
// that name to the directory <root>/<name>, opens a tree.Store there and keeps
// the handle keyed by a content hash of the schema: resolving an identical
// schema again returns the cached handle, while a changed schema reopens the
// collection and refreshes its catalog entry.
//
// The cache belongs to the Registry value; there is no process-wide state.
//
// Example usage:
//
//	reg := registry.New("/srv/dittodocs", memory.New(nil))
//	books, _ := reg.Resolve(ctx, registry.Schema{"_name": "books"})
//	docs, _ := books.Find(ctx, store.Query{})
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/catalog"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

// NameKey is the schema key holding the collection name.
const NameKey = "_name"

// Schema is the decoded schema document of a collection.
type Schema map[string]any

// Name returns the collection name declared by the schema.
func (s Schema) Name() (string, error) {
	raw, ok := s[NameKey]
	if !ok {
		return "", fmt.Errorf("schema has no %s", NameKey)
	}
	name, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("schema %s must be a string, got %T", NameKey, raw)
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// Hash returns the hex sha256 of the schema's JSON encoding. Map keys are
// encoded in sorted order, so equal schemas hash equally.
func (s Schema) Hash() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("invalid collection name %q", name)
	case strings.HasPrefix(name, "."):
		// Hidden entries under the root hold the catalog and restore staging.
		return fmt.Errorf("invalid collection name %q: names starting with '.' are reserved", name)
	case strings.ContainsAny(name, `/\<>:"|?*`):
		return fmt.Errorf("invalid collection name %q", name)
	}
	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("invalid collection name %q", name)
		}
	}
	return nil
}

type handle struct {
	hash  string
	store *tree.Store
}

// Registry manages collection handles under one storage root.
type Registry struct {
	root    string
	catalog catalog.Catalog
	options []tree.Option

	mu          sync.Mutex
	collections map[string]*handle
}

// New creates a registry for collections stored under root. Every opened
// collection is configured with opts.
func New(root string, cat catalog.Catalog, opts ...tree.Option) *Registry {
	return &Registry{
		root:        root,
		catalog:     cat,
		options:     opts,
		collections: make(map[string]*handle),
	}
}

// Root returns the storage root.
func (r *Registry) Root() string {
	return r.root
}

// Resolve returns the collection described by schema.
func (r *Registry) Resolve(ctx context.Context, schema Schema) (*tree.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := schema.Name()
	if err != nil {
		return nil, err
	}
	hash, err := schema.Hash()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.collections[name]; ok && h.hash == hash {
		return h.store, nil
	}

	s, err := tree.New(filepath.Join(r.root, name), r.options...)
	if err != nil {
		return nil, err
	}

	err = r.catalog.Put(ctx, &catalog.Entry{
		Name:       name,
		SchemaHash: hash,
		Root:       s.Root(),
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record collection %q: %w", name, err)
	}

	if _, reopened := r.collections[name]; reopened {
		logger.Info("Schema of collection %q changed, reopened at %s", name, s.Root())
	} else {
		logger.Debug("Registered collection %q at %s", name, s.Root())
	}
	r.collections[name] = &handle{hash: hash, store: s}
	return s, nil
}

// Open resolves a collection by name alone, using the minimal schema
// {"_name": name}.
func (r *Registry) Open(ctx context.Context, name string) (*tree.Store, error) {
	return r.Resolve(ctx, Schema{NameKey: name})
}

// Collections lists the catalog entries of every registered collection,
// including ones registered by earlier processes when the catalog persists.
func (r *Registry) Collections(ctx context.Context) ([]*catalog.Entry, error) {
	return r.catalog.List(ctx)
}

// Forget drops the cached handle and catalog entry of a collection. Files on
// disk are left untouched.
func (r *Registry) Forget(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, cached := r.collections[name]
	delete(r.collections, name)

	err := r.catalog.Delete(ctx, name)
	if errors.Is(err, catalog.ErrEntryNotFound) && cached {
		return nil
	}
	return err
}

// Close closes the catalog.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collections = make(map[string]*handle)
	return r.catalog.Close()
}
