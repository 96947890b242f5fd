// Package memory provides an in-memory catalog. Entries are lost when the
// process exits.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittodocs/pkg/catalog"
	"github.com/marmos91/dittodocs/pkg/metrics"
)

// Catalog is a map-backed catalog.Catalog.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]catalog.Entry
	metrics metrics.CatalogMetrics
}

// New creates an empty in-memory catalog. m may be nil.
func New(m metrics.CatalogMetrics) *Catalog {
	if m == nil {
		m = metrics.NewCatalogMetrics("memory")
	}
	return &Catalog{
		entries: make(map[string]catalog.Entry),
		metrics: m,
	}
}

func (c *Catalog) Get(ctx context.Context, name string) (entry *catalog.Entry, err error) {
	defer c.observe("get", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrEntryNotFound, name)
	}
	return &e, nil
}

func (c *Catalog) Put(ctx context.Context, entry *catalog.Entry) (err error) {
	defer c.observe("put", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Name == "" {
		return fmt.Errorf("catalog entry requires a name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var previous *catalog.Entry
	if e, ok := c.entries[entry.Name]; ok {
		previous = &e
	}
	c.entries[entry.Name] = *catalog.Merge(previous, entry)
	c.metrics.SetCollections(len(c.entries))
	return nil
}

func (c *Catalog) Delete(ctx context.Context, name string) (err error) {
	defer c.observe("delete", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok {
		return fmt.Errorf("%w: %s", catalog.ErrEntryNotFound, name)
	}
	delete(c.entries, name)
	c.metrics.SetCollections(len(c.entries))
	return nil
}

func (c *Catalog) List(ctx context.Context) (entries []*catalog.Entry, err error) {
	defer c.observe("scan", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entries = make([]*catalog.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, &e)
	}
	slices.SortFunc(entries, func(a, b *catalog.Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries, nil
}

// Close is a no-op.
func (c *Catalog) Close() error {
	return nil
}

func (c *Catalog) observe(op string, start time.Time, err *error) {
	c.metrics.RecordStorageOperation(op, time.Since(start), *err)
}
