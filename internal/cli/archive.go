package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

// documentCommand builds a command taking a single document id.
func documentCommand(flags *globalFlags, use, short string, run func(ctx context.Context, c *tree.Store, id docid.ID) (*store.Document, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := docid.Parse(args[0])
			if err != nil {
				return err
			}
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				doc, err := run(ctx, c, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func newCompressCommand(flags *globalFlags) *cobra.Command {
	return documentCommand(flags, "compress", "Zip a document into a sibling <name>.zip",
		func(ctx context.Context, c *tree.Store, id docid.ID) (*store.Document, error) {
			return c.Compress(ctx, id)
		})
}

func newExtractCommand(flags *globalFlags) *cobra.Command {
	return documentCommand(flags, "extract", "Unzip a .zip document into a sibling directory",
		func(ctx context.Context, c *tree.Store, id docid.ID) (*store.Document, error) {
			return c.Extract(ctx, id)
		})
}

func newBackupCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <destination>",
		Short: "Copy the collection to a new directory or an s3:// snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				if err := c.Backup(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "backed up %s to %s\n", c.Root(), args[0])
				return err
			})
		},
	}
}

func newRestoreCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <source>",
		Short: "Replace the collection with a backup directory or an s3:// snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				if err := c.Restore(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", c.Root(), args[0])
				return err
			})
		},
	}
}
