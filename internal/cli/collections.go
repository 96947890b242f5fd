package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodocs/pkg/config"
	"github.com/marmos91/dittodocs/pkg/gc"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

func newInitCommand() *cobra.Command {
	var (
		force bool
		path  string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path != "" {
				if err := config.InitConfigToPath(path, force); err != nil {
					return err
				}
			} else {
				var err error
				if path, err = config.InitConfig(force); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&path, "path", "", "Write to this path instead of the default location")
	return cmd
}

func newCollectionsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List registered collections",
		Long: `List the collections recorded in the catalog. With the memory catalog only
the collection opened by this command (if any) is listed; configure
catalog.type=badger to keep the list across runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				if flags.collection != "" {
					if _, err := s.registry.Open(ctx, flags.collection); err != nil {
						return err
					}
				}

				entries, err := s.registry.Collections(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tROOT\tSCHEMA\tUPDATED")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%.12s\t%s\n", e.Name, e.Root, e.SchemaHash, e.UpdatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func newStatsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print document and byte counts of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				stats, err := c.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func newGCCommand(flags *globalFlags) *cobra.Command {
	var (
		dryRun bool
		minAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove staging directories left by interrupted restores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				collector := gc.NewCollector(s.registry.Root(), gc.Config{MinAge: minAge, DryRun: dryRun})
				stats, err := collector.RunNow(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report stale directories without removing them")
	cmd.Flags().DurationVar(&minAge, "min-age", time.Hour, "Only remove directories older than this")
	return cmd
}
