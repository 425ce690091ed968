package main

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/tendant/materialize-demo/pkg/blogsite/seed"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var flagQuiet bool

	cmd := &cobra.Command{
		Use:   "seed [fixture.yaml]",
		Short: "Create a home page, posts and images from a YAML fixture",
		Long: `seed uploads the images of a fixture and creates its home page and posts,
publishing those marked live. Without a file the built-in demo site is used.

With the in-memory database the content only lives as long as the command;
point BLOGSITE_DATABASE_URL at Postgres to keep it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				fx    *seed.Fixture
				files fs.FS
				err   error
			)
			if len(args) == 1 {
				fx, files, err = seed.LoadFile(args[0])
			} else {
				fx, files, err = seed.Demo()
			}
			if err != nil {
				return err
			}

			svc, err := opts.buildService()
			if err != nil {
				return err
			}

			res, err := seed.Apply(cmd.Context(), svc, fx, files)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d images and %d posts below %s\n", len(res.Images), len(res.Posts), res.Home.ID)
			if flagQuiet {
				return nil
			}
			return printTree(cmd.Context(), out, svc)
		},
	}
	cmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "Do not print the resulting page tree")

	return cmd
}
