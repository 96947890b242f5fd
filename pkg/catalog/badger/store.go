// Package badger implements a persistent catalog on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/catalog"
	"github.com/marmos91/dittodocs/pkg/metrics"
)

// Config configures the BadgerDB catalog.
type Config struct {
	// DBPath is the directory holding the database files.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in memory; DBPath is ignored. Used by tests.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB defaults to 16.
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
}

// Catalog is a catalog.Catalog persisted in BadgerDB.
type Catalog struct {
	db      *badger.DB
	metrics metrics.CatalogMetrics
}

// New opens (or creates) the database described by cfg.
//
// The catalog is tiny compared to the document trees it describes, so the
// defaults keep the caches small and disable compression.
func New(ctx context.Context, cfg Config, m metrics.CatalogMetrics) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewCatalogMetrics("badger")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger catalog requires db_path")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16
	}
	opts = opts.
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	c := &Catalog{db: db, metrics: m}
	if err := c.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}

	count, err := c.count()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	m.SetCollections(count)

	logger.Debug("Opened badger catalog at %s (%d collections)", cfg.DBPath, count)
	return c, nil
}

// initialize writes the version marker on first open and refuses databases
// written by an incompatible version.
func (c *Catalog) initialize() error {
	return c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyVersion))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set([]byte(keyVersion), encodeVersion(catalogVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read catalog version: %w", err)
		}

		return item.Value(func(val []byte) error {
			v, err := decodeVersion(val)
			if err != nil {
				return err
			}
			if v != catalogVersion {
				return fmt.Errorf("unsupported catalog version %d (want %d)", v, catalogVersion)
			}
			return nil
		})
	})
}

func (c *Catalog) Get(ctx context.Context, name string) (entry *catalog.Entry, err error) {
	defer c.observe("get", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = c.db.View(func(txn *badger.Txn) error {
		entry, err = getEntry(txn, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (c *Catalog) Put(ctx context.Context, entry *catalog.Entry) (err error) {
	defer c.observe("put", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Name == "" {
		return fmt.Errorf("catalog entry requires a name")
	}

	var created bool
	err = c.db.Update(func(txn *badger.Txn) error {
		previous, err := getEntry(txn, entry.Name)
		if err != nil && !errors.Is(err, catalog.ErrEntryNotFound) {
			return err
		}
		created = previous == nil

		data, err := encodeEntry(catalog.Merge(previous, entry))
		if err != nil {
			return err
		}
		return txn.Set(keyCollection(entry.Name), data)
	})
	if err != nil {
		return err
	}

	if created {
		c.refreshCount()
	}
	return nil
}

func (c *Catalog) Delete(ctx context.Context, name string) (err error) {
	defer c.observe("delete", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyCollection(name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", catalog.ErrEntryNotFound, name)
			}
			return err
		}
		return txn.Delete(keyCollection(name))
	})
	if err != nil {
		return err
	}

	c.refreshCount()
	return nil
}

func (c *Catalog) List(ctx context.Context) (entries []*catalog.Entry, err error) {
	defer c.observe("scan", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries = []*catalog.Entry{}
	err = c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			Prefix:         []byte(prefixCollection),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				entry, err := decodeEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close flushes and closes the database.
func (c *Catalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func getEntry(txn *badger.Txn, name string) (*catalog.Entry, error) {
	item, err := txn.Get(keyCollection(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrEntryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog entry %s: %w", name, err)
	}

	var entry *catalog.Entry
	err = item.Value(func(val []byte) error {
		entry, err = decodeEntry(val)
		return err
	})
	return entry, err
}

func (c *Catalog) count() (int, error) {
	var n int
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixCollection)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (c *Catalog) refreshCount() {
	n, err := c.count()
	if err != nil {
		logger.Warn("Failed to count catalog entries: %v", err)
		return
	}
	c.metrics.SetCollections(n)
}

func (c *Catalog) observe(op string, start time.Time, err *error) {
	c.metrics.RecordStorageOperation(op, time.Since(start), *err)
}
