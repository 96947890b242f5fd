package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodocs/pkg/catalog"
	catalogtesting "github.com/marmos91/dittodocs/pkg/catalog/testing"
)

func TestBadgerCatalog(t *testing.T) {
	suite := &catalogtesting.CatalogTestSuite{
		NewCatalog: func(t *testing.T) catalog.Catalog {
			c, err := New(context.Background(), Config{InMemory: true}, nil)
			require.NoError(t, err)
			return c
		},
	}
	suite.Run(t)
}

func TestBadgerCatalogPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	updated := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	c, err := New(ctx, Config{DBPath: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, catalogtesting.NewEntry("books", "abc", updated)))
	require.NoError(t, c.Close())

	reopened, err := New(ctx, Config{DBPath: dir}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.Get(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, "abc", entry.SchemaHash)
	assert.True(t, entry.UpdatedAt.Equal(updated))
}

func TestBadgerCatalogRequiresPath(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestVersionEncoding(t *testing.T) {
	v, err := decodeVersion(encodeVersion(catalogVersion))
	require.NoError(t, err)
	assert.Equal(t, catalogVersion, v)

	_, err = decodeVersion([]byte{1, 2})
	assert.Error(t, err)
}
