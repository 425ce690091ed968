package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tendant/materialize-demo/pkg/blogsite"
)

func newTreeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the page tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.buildService()
			if err != nil {
				return err
			}
			return printTree(cmd.Context(), cmd.OutOrStdout(), svc)
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema and tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseType != "postgres" {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate for the in-memory database")
				return nil
			}
			if err := cfg.Ping(cmd.Context()); err != nil {
				return err
			}
			if err := cfg.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated schema %q\n", cfg.DBSchema)
			return nil
		},
	}
}

// printTree writes one line per page, children indented below their parent.
func printTree(ctx context.Context, w io.Writer, svc blogsite.Service) error {
	roots, err := svc.ListRoots(ctx)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		_, err := fmt.Fprintln(w, "No pages")
		return err
	}

	for _, root := range roots {
		if err := printPage(ctx, w, svc, root, "/", 0); err != nil {
			return err
		}
	}
	return nil
}

func printPage(ctx context.Context, w io.Writer, svc blogsite.Service, page *blogsite.Page, parentPath string, depth int) error {
	path := parentPath + page.Slug + "/"
	state := "draft"
	if page.Live {
		state = "live"
	}
	if _, err := fmt.Fprintf(w, "%s%s [%s] %s (%s)\n", strings.Repeat("  ", depth), page.Title, page.Type, path, state); err != nil {
		return err
	}

	if len(page.Type.SubpageTypes()) == 0 {
		return nil
	}
	children, err := svc.ListChildren(ctx, page.ID, false)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := printPage(ctx, w, svc, child, path, depth+1); err != nil {
			return err
		}
	}
	return nil
}
