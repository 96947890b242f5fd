package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/archive"
	"github.com/marmos91/dittodocs/pkg/catalog"
	catalogBadger "github.com/marmos91/dittodocs/pkg/catalog/badger"
	catalogMemory "github.com/marmos91/dittodocs/pkg/catalog/memory"
	"github.com/marmos91/dittodocs/pkg/metrics"
	"github.com/marmos91/dittodocs/pkg/registry"
	snapshotS3 "github.com/marmos91/dittodocs/pkg/snapshot/s3"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

// CreateCatalog creates a catalog based on configuration.
//
// Supported types:
//   - "memory": entries live for the lifetime of the process
//   - "badger": entries persist in a BadgerDB database (badger.db_path)
func CreateCatalog(ctx context.Context, cfg *CatalogConfig, m metrics.CatalogMetrics) (catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return catalogMemory.New(m), nil
	case "badger":
		return createBadgerCatalog(ctx, cfg.Badger, m)
	default:
		return nil, fmt.Errorf("unknown catalog type: %q (supported: memory, badger)", cfg.Type)
	}
}

func createBadgerCatalog(ctx context.Context, options map[string]any, m metrics.CatalogMetrics) (catalog.Catalog, error) {
	var badgerCfg catalogBadger.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &badgerCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger catalog options: %w", err)
	}

	if badgerCfg.DBPath == "" && !badgerCfg.InMemory {
		return nil, fmt.Errorf("badger catalog: db_path is required")
	}

	c, err := catalogBadger.New(ctx, badgerCfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger catalog: %w", err)
	}
	return c, nil
}

// CreateSnapshotTransfer creates the S3 snapshot transfer, or returns nil when
// snapshots are disabled.
func CreateSnapshotTransfer(ctx context.Context, cfg *SnapshotConfig, m metrics.SnapshotMetrics) (*snapshotS3.Transfer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var s3Cfg snapshotS3.Config
	if err := mapstructure.WeakDecode(cfg.S3, &s3Cfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 snapshot config: %w", err)
	}
	if s3Cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 snapshot: bucket is required")
	}
	if s3Cfg.Region == "" {
		return nil, fmt.Errorf("S3 snapshot: region is required")
	}

	client, err := snapshotS3.NewClientFromConfig(ctx, s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	transfer, err := snapshotS3.NewTransfer(client, s3Cfg, m)
	if err != nil {
		return nil, err
	}

	logger.Info("S3 snapshots enabled: bucket=%s region=%s prefix=%q", s3Cfg.Bucket, s3Cfg.Region, s3Cfg.KeyPrefix)
	return transfer, nil
}

// CreateArchiveBridge creates the archive bridge running the configured utilities.
func CreateArchiveBridge(cfg *ArchiveConfig, m metrics.StoreMetrics) *archive.Bridge {
	return archive.New(archive.Config{
		ZipCommand:   cfg.ZipCommand,
		UnzipCommand: cfg.UnzipCommand,
		CopyCommand:  cfg.CopyCommand,
	}, nil, m)
}

// StoreOptions builds the options every collection is opened with.
func StoreOptions(cfg *Config, m metrics.StoreMetrics, snapshots *snapshotS3.Transfer) []tree.Option {
	opts := []tree.Option{
		tree.WithMetrics(m),
		tree.WithArchive(CreateArchiveBridge(&cfg.Archive, m)),
		tree.WithMimeSniffing(cfg.Storage.SniffMime),
	}
	// A nil *Transfer must not become a non-nil Snapshotter.
	if snapshots != nil {
		opts = append(opts, tree.WithSnapshots(snapshots))
	}
	return opts
}

// InitializeRegistry wires the catalog, snapshot transfer and archive bridge
// into a Registry rooted at storage.root.
//
// The caller owns the returned registry and must Close it.
func InitializeRegistry(ctx context.Context, cfg *Config, m *MetricsResult) (*registry.Registry, error) {
	if m == nil {
		m = InitializeMetrics(cfg)
	}

	cat, err := CreateCatalog(ctx, &cfg.Catalog, m.Catalog)
	if err != nil {
		return nil, err
	}

	snapshots, err := CreateSnapshotTransfer(ctx, &cfg.Snapshot, m.Snapshot)
	if err != nil {
		_ = cat.Close()
		return nil, err
	}

	logger.Debug("Storage root: %s (catalog: %s)", cfg.Storage.Root, cfg.Catalog.Type)
	return registry.New(cfg.Storage.Root, cat, StoreOptions(cfg, m.Store, snapshots)...), nil
}
