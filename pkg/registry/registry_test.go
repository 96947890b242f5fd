package registry

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodocs/pkg/catalog"
	"github.com/marmos91/dittodocs/pkg/catalog/memory"
	"github.com/marmos91/dittodocs/pkg/store"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

func newRegistry(t *testing.T, opts ...tree.Option) *Registry {
	t.Helper()
	r := New(t.TempDir(), memory.New(nil), opts...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestResolveRootsCollectionUnderName(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	books, err := r.Resolve(ctx, Schema{"_name": "books", "title": map[string]any{"type": "string"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Root(), "books"), books.Root())
	assert.DirExists(t, books.Root())

	_, err = books.Create(ctx, store.CreateRequest{Name: "a.txt", Content: strings.NewReader("a")})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(r.Root(), "books", "a.txt"))
}

func TestResolveCachesBySchemaHash(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, Schema{"_name": "books", "a": 1, "b": 2})
	require.NoError(t, err)

	same, err := r.Resolve(ctx, Schema{"b": 2, "a": 1, "_name": "books"})
	require.NoError(t, err)
	assert.Same(t, first, same, "key order does not change the hash")

	changed, err := r.Resolve(ctx, Schema{"_name": "books", "a": 1})
	require.NoError(t, err)
	assert.NotSame(t, first, changed)
	assert.Equal(t, first.Root(), changed.Root())

	entry, err := r.catalog.Get(ctx, "books")
	require.NoError(t, err)
	hash, err := Schema{"_name": "books", "a": 1}.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, entry.SchemaHash)
}

func TestResolveRejectsBadNames(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		schema Schema
	}{
		{"missing", Schema{"title": "x"}},
		{"not a string", Schema{"_name": 7}},
		{"empty", Schema{"_name": ""}},
		{"dot dot", Schema{"_name": ".."}},
		{"hidden", Schema{"_name": ".catalog"}},
		{"staging", Schema{"_name": ".dittodocs-restore-1"}},
		{"separator", Schema{"_name": "a/b"}},
		{"illegal char", Schema{"_name": "a?b"}},
		{"control char", Schema{"_name": "a\x01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(ctx, tt.schema)
			assert.Error(t, err)
		})
	}
}

func TestCollectionsAndForget(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	_, err := r.Open(ctx, "movies")
	require.NoError(t, err)
	_, err = r.Open(ctx, "books")
	require.NoError(t, err)

	entries, err := r.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "books", entries[0].Name)
	assert.Equal(t, "movies", entries[1].Name)

	require.NoError(t, r.Forget(ctx, "books"))
	entries, err = r.Collections(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.DirExists(t, filepath.Join(r.Root(), "books"), "forget leaves files alone")

	err = r.Forget(ctx, "books")
	assert.ErrorIs(t, err, catalog.ErrEntryNotFound)
}

func TestResolvePassesStoreOptions(t *testing.T) {
	r := newRegistry(t, tree.WithNameGenerator(func() string { return "fixed" }))

	books, err := r.Open(context.Background(), "books")
	require.NoError(t, err)
	assert.Equal(t, "fixed", books.NewID().Path())
}

func TestResolveCancelledContext(t *testing.T) {
	r := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Open(ctx, "books")
	assert.ErrorIs(t, err, context.Canceled)
}
