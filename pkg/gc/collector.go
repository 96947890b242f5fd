// Package gc removes staging directories left behind by interrupted restores.
//
// A remote restore downloads and unpacks a snapshot into a hidden sibling of
// the collection root before swapping it in. When the process dies between
// those steps the staging directory (see tree.StagingPattern) stays on disk.
// The collector finds such directories under the storage root and deletes the
// ones older than a grace period, so restores still in flight are left alone.
package gc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

// Collector performs periodic cleanup of stale staging directories.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	root   string
	config Config
	stopCh chan struct{}
	doneCh chan struct{}
}

// Config contains configuration for the collector.
type Config struct {
	// Enabled controls whether the background worker runs (default: false)
	Enabled bool

	// Interval is how often the background worker runs (default: 1h)
	Interval time.Duration

	// MinAge is how old a staging directory must be before it is removed
	// (default: 1h)
	MinAge time.Duration

	// DryRun logs what would be deleted without deleting
	DryRun bool
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.MinAge <= 0 {
		c.MinAge = time.Hour
	}
}

// NewCollector creates a collector for the storage root holding the
// collections. Call Start to run it in the background or RunNow for a single
// pass.
func NewCollector(root string, config Config) *Collector {
	config.applyDefaults()
	return &Collector{
		root:   root,
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the background worker. It does nothing when disabled.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Debug("Staging cleanup disabled")
		close(c.doneCh)
		return
	}

	logger.Info("Starting staging cleanup: interval=%s min_age=%s dry_run=%v",
		c.config.Interval, c.config.MinAge, c.config.DryRun)

	go c.worker()
}

// Stop signals the worker and waits for it to finish or for ctx to expire.
// Start must have been called first.
func (c *Collector) Stop(ctx context.Context) error {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}

	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		logger.Warn("Staging cleanup shutdown timeout")
		return ctx.Err()
	}
}

// RunNow performs one cleanup pass and blocks until it completes.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Staging cleanup failed: %v", err)
			} else if stats.StaleCount > 0 {
				logger.Info("Staging cleanup completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect scans the storage root once.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("failed to scan storage root: %w", err)
	}

	cutoff := time.Now().Add(-c.config.MinAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if matched, _ := filepath.Match(tree.StagingPattern, entry.Name()); !matched || !entry.IsDir() {
			continue
		}
		stats.ScannedCount++

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		stats.StaleCount++

		path := filepath.Join(c.root, entry.Name())
		if c.config.DryRun {
			logger.Info("GC: DRY RUN - would remove %s", path)
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			logger.Warn("GC: failed to remove %s: %v", path, err)
			stats.FailedCount++
			continue
		}
		logger.Debug("GC: removed %s", path)
		stats.DeletedCount++
	}

	return stats, nil
}

// Stats contains statistics from a cleanup pass.
type Stats struct {
	StartTime    time.Time // When the pass started
	EndTime      time.Time // When the pass ended
	ScannedCount uint64    // Staging directories found
	StaleCount   uint64    // Staging directories older than MinAge
	DeletedCount uint64    // Stale directories removed
	FailedCount  uint64    // Stale directories that could not be removed
}

// Duration returns the total pass duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the pass.
func (s *Stats) Summary() string {
	return fmt.Sprintf("scanned=%d stale=%d deleted=%d failed=%d duration=%s",
		s.ScannedCount, s.StaleCount, s.DeletedCount, s.FailedCount, s.Duration())
}
