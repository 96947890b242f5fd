package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
	"github.com/marmos91/dittodocs/pkg/store/tree"
)

func newGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := docid.Parse(args[0])
			if err != nil {
				return err
			}
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				doc, err := c.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func newFindCommand(flags *globalFlags) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the documents matching a query",
		Example: `  dittodocs find -c books -f name=report.pdf
  dittodocs find -c books -f parent_id=ZG9jcw -s name:desc --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.build()
			if err != nil {
				return err
			}
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				docs, err := c.Find(ctx, query)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), docs)
			})
		},
	}
	q.register(cmd, true)
	return cmd
}

func newCountCommand(flags *globalFlags) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of documents matching a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.build()
			if err != nil {
				return err
			}
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				n, err := c.Count(ctx, query)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	q.register(cmd, false)
	return cmd
}

func newListCommand(flags *globalFlags) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a page of documents with the total match count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.build()
			if err != nil {
				return err
			}
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				result, err := c.List(ctx, query)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	q.register(cmd, true)
	return cmd
}

// contentFlags select the content of a new or updated file.
type contentFlags struct {
	file string
	text string
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "Read content from a local file (- for stdin)")
	cmd.Flags().StringVar(&f.text, "content", "", "Use the given text as content")
	cmd.MarkFlagsMutuallyExclusive("file", "content")
}

// open returns the selected content, or nil when neither flag is set.
func (f *contentFlags) open(cmd *cobra.Command) (io.Reader, func(), error) {
	switch {
	case f.file == "-":
		return cmd.InOrStdin(), func() {}, nil
	case f.file != "":
		file, err := os.Open(f.file)
		if err != nil {
			return nil, func() {}, err
		}
		return file, func() { _ = file.Close() }, nil
	case cmd.Flags().Changed("content"):
		return strings.NewReader(f.text), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func newCreateCommand(flags *globalFlags) *cobra.Command {
	var (
		name    string
		parent  string
		dir     bool
		content contentFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a file or directory",
		Example: `  dittodocs create -c books --name notes.txt --content "hello"
  dittodocs create -c books --name archive --dir
  dittodocs create -c books --parent YXJjaGl2ZQ --file ./report.pdf --name report.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := docid.Parse(parent)
			if err != nil {
				return err
			}
			req := store.CreateRequest{Name: name, ParentID: parentID}
			if dir {
				req.Mime = store.DirectoryMime
			} else {
				reader, closeContent, err := content.open(cmd)
				if err != nil {
					return err
				}
				defer closeContent()
				req.Content = reader
			}

			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				doc, err := c.Create(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the new document (default: generated)")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent directory id (default: collection root)")
	cmd.Flags().BoolVar(&dir, "dir", false, "Create a directory")
	content.register(cmd)
	cmd.MarkFlagsMutuallyExclusive("dir", "file")
	cmd.MarkFlagsMutuallyExclusive("dir", "content")
	return cmd
}

func newUpdateCommand(flags *globalFlags) *cobra.Command {
	var (
		name    string
		parent  string
		all     bool
		content contentFlags
	)
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Rename, move or rewrite the documents matching a query",
		Long: `Update renames or moves every matching document and optionally replaces
file content. Documents are processed in order; when a destination is already
occupied the command stops and earlier changes are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.build()
			if err != nil {
				return err
			}
			if len(query.Filter) == 0 && !all {
				return fmt.Errorf("refusing to update every document without --all")
			}

			req := store.UpdateRequest{Name: name}
			if cmd.Flags().Changed("parent") {
				parentID, err := docid.Parse(parent)
				if err != nil {
					return err
				}
				req.ParentID = &parentID
			}
			reader, closeContent, err := content.open(cmd)
			if err != nil {
				return err
			}
			defer closeContent()
			req.Content = reader

			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				// Partial batches report how many documents moved before the error.
				changed, err := c.Update(ctx, query, req)
				if _, printErr := fmt.Fprintln(cmd.OutOrStdout(), changed); err == nil {
					err = printErr
				}
				return err
			})
		},
	}
	q.register(cmd, false)
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&parent, "parent", "", "New parent directory id (empty string is the root)")
	cmd.Flags().BoolVar(&all, "all", false, "Allow updating every document of the collection")
	content.register(cmd)
	return cmd
}

func newRemoveCommand(flags *globalFlags) *cobra.Command {
	var all bool
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the documents matching a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.build()
			if err != nil {
				return err
			}
			if len(query.Filter) == 0 && !all {
				return fmt.Errorf("refusing to remove every document without --all")
			}
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				removed, err := c.Remove(ctx, query)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), removed)
				return err
			})
		},
	}
	q.register(cmd, false)
	cmd.Flags().BoolVar(&all, "all", false, "Allow removing every document of the collection")
	return cmd
}

func newIDCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "new-id",
		Short: "Print a fresh identifier under the collection root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), c.NewID())
				return err
			})
		},
	}
}

func newRootPathCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the directory holding the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(cmd, flags, func(ctx context.Context, c *tree.Store) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), c.Root())
				return err
			})
		},
	}
}
