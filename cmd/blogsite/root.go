package main

import (
	"github.com/spf13/cobra"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/config"
)

// DefaultEnvPrefix prefixes the environment variables read by the CLI.
const DefaultEnvPrefix = "BLOGSITE_"

type rootOptions struct {
	envPrefix string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "blogsite",
		Short: "Manage and render a Materialize blog",
		Long: `blogsite works with the page tree of a Materialize styled blog: a blogger
home page with blog, parallax and dynamic parallax posts below it.

Settings come from the environment (see config.WithEnv), for example
BLOGSITE_DATABASE_URL and BLOGSITE_STORAGE_URL.

Usage:
  blogsite render-media --type video --url https://example.com/clip.mp4
  blogsite seed [fixture.yaml]
  blogsite tree
  blogsite migrate`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", DefaultEnvPrefix, "Prefix of the environment variables to read")

	cmd.AddCommand(
		newRenderMediaCmd(),
		newSeedCmd(opts),
		newTreeCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.ServerConfig, error) {
	return config.Load(config.WithEnv(o.envPrefix))
}

func (o *rootOptions) buildService() (blogsite.Service, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.BuildService()
}
