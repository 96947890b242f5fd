// Package cli implements the dittodocs command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/config"
	"github.com/marmos91/dittodocs/pkg/registry"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

// globalFlags are shared by every subcommand of one root command.
type globalFlags struct {
	configPath string
	collection string
	logLevel   string
}

// session holds what a command needs once configuration is loaded.
type session struct {
	registry *registry.Registry
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "dittodocs",
		Short: "Tree-backed virtual document store",
		Long: `dittodocs exposes directories as document collections.

Every collection lives in <storage.root>/<name>. Files and directories are
documents; identifiers are URL-safe tokens encoding the path relative to the
collection root.

Filters use key=value pairs on id, parent_id, name, mime, size and updated_at.
Without id or parent_id a query searches the whole collection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/dittodocs/config.yaml)")
	root.PersistentFlags().StringVarP(&flags.collection, "collection", "c", "", "Collection name")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override logging.level (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newInitCommand(),
		newCollectionsCommand(flags),
		newGetCommand(flags),
		newFindCommand(flags),
		newCountCommand(flags),
		newListCommand(flags),
		newCreateCommand(flags),
		newUpdateCommand(flags),
		newRemoveCommand(flags),
		newIDCommand(flags),
		newRootPathCommand(flags),
		newStatsCommand(flags),
		newCompressCommand(flags),
		newExtractCommand(flags),
		newBackupCommand(flags),
		newRestoreCommand(flags),
		newGCCommand(flags),
	)
	return root
}

// openSession loads configuration, configures logging and builds the registry.
// The returned cleanup must always be called.
func openSession(ctx context.Context, flags *globalFlags) (*session, func(), error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, func() {}, err
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	// stdout carries command results.
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, func() {}, fmt.Errorf("failed to configure logging: %w", err)
	}

	m := config.InitializeMetrics(cfg)
	stopMetrics := serveMetrics(ctx, m)

	reg, err := config.InitializeRegistry(ctx, cfg, m)
	if err != nil {
		stopMetrics()
		return nil, func() {}, err
	}

	cleanup := func() {
		if err := reg.Close(); err != nil {
			logger.Warn("Failed to close registry: %v", err)
		}
		stopMetrics()
		_ = logger.Sync()
	}
	return &session{registry: reg}, cleanup, nil
}

// serveMetrics exposes /metrics for the lifetime of the command, which matters
// for long backups and restores. The returned function stops the server.
func serveMetrics(ctx context.Context, m *config.MetricsResult) func() {
	if m.Server == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.Server.Start(ctx); err != nil {
			logger.Warn("Metrics server: %v", err)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// withSession runs fn against a loaded session.
func withSession(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, cleanup, err := openSession(ctx, flags)
	defer cleanup()
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

// withCollection runs fn against the collection named by --collection.
func withCollection(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, c *tree.Store) error) error {
	if flags.collection == "" {
		return errors.New("--collection is required")
	}
	return withSession(cmd, flags, func(ctx context.Context, s *session) error {
		c, err := s.registry.Open(ctx, flags.collection)
		if err != nil {
			return err
		}
		return fn(ctx, c)
	})
}
