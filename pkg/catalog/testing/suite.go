package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodocs/pkg/catalog"
)

// CatalogTestSuite checks the catalog.Catalog contract. It is reused by every
// implementation so memory and badger behave the same way.
type CatalogTestSuite struct {
	// NewCatalog creates a fresh, empty catalog for each test.
	NewCatalog func(t *testing.T) catalog.Catalog
}

// Run executes all tests in the suite.
func (suite *CatalogTestSuite) Run(t *testing.T) {
	t.Run("PutGet", suite.testPutGet)
	t.Run("PutPreservesCreatedAt", suite.testPutPreservesCreatedAt)
	t.Run("GetMissing", suite.testGetMissing)
	t.Run("Delete", suite.testDelete)
	t.Run("ListSorted", suite.testListSorted)
	t.Run("RejectsEmptyName", suite.testRejectsEmptyName)
	t.Run("CancelledContext", suite.testCancelledContext)
}

func (suite *CatalogTestSuite) catalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c := suite.NewCatalog(t)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (suite *CatalogTestSuite) testPutGet(t *testing.T) {
	c := suite.catalog(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, NewEntry("books", "abc", now)))

	entry, err := c.Get(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, "books", entry.Name)
	assert.Equal(t, "abc", entry.SchemaHash)
	assert.Equal(t, "/data/books", entry.Root)
	assert.True(t, entry.CreatedAt.Equal(now), "CreatedAt defaults to UpdatedAt")
	assert.True(t, entry.UpdatedAt.Equal(now))
}

func (suite *CatalogTestSuite) testPutPreservesCreatedAt(t *testing.T) {
	c := suite.catalog(t)
	ctx := context.Background()
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, c.Put(ctx, NewEntry("books", "v1", first)))
	require.NoError(t, c.Put(ctx, NewEntry("books", "v2", second)))

	entry, err := c.Get(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, "v2", entry.SchemaHash)
	assert.True(t, entry.CreatedAt.Equal(first))
	assert.True(t, entry.UpdatedAt.Equal(second))

	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func (suite *CatalogTestSuite) testGetMissing(t *testing.T) {
	c := suite.catalog(t)

	_, err := c.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, catalog.ErrEntryNotFound))
}

func (suite *CatalogTestSuite) testDelete(t *testing.T) {
	c := suite.catalog(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, NewEntry("books", "abc", time.Now())))
	require.NoError(t, c.Delete(ctx, "books"))

	_, err := c.Get(ctx, "books")
	assert.ErrorIs(t, err, catalog.ErrEntryNotFound)

	err = c.Delete(ctx, "books")
	assert.ErrorIs(t, err, catalog.ErrEntryNotFound)
}

func (suite *CatalogTestSuite) testListSorted(t *testing.T) {
	c := suite.catalog(t)
	ctx := context.Background()

	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, name := range []string{"movies", "authors", "books"} {
		require.NoError(t, c.Put(ctx, NewEntry(name, "h", time.Now())))
	}

	entries, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "authors", entries[0].Name)
	assert.Equal(t, "books", entries[1].Name)
	assert.Equal(t, "movies", entries[2].Name)
}

func (suite *CatalogTestSuite) testRejectsEmptyName(t *testing.T) {
	c := suite.catalog(t)

	assert.Error(t, c.Put(context.Background(), &catalog.Entry{}))
	assert.Error(t, c.Put(context.Background(), nil))
}

func (suite *CatalogTestSuite) testCancelledContext(t *testing.T) {
	c := suite.catalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Put(ctx, NewEntry("books", "h", time.Now())), context.Canceled)
	_, err := c.Get(ctx, "books")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = c.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
