package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/materialize-demo/pkg/blogsite/media"
)

func newRenderMediaCmd() *cobra.Command {
	var (
		flagType string
		flagURL  string
	)

	cmd := &cobra.Command{
		Use:   "render-media",
		Short: "Print the HTML player for a media file",
		Long: `render-media prints the <video> or <audio> element used for media blocks.

Examples:
  blogsite render-media --type video --url https://example.com/clip.mp4
  blogsite render-media --url https://example.com/episode.MP3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			html := media.Render(&media.Reference{Type: media.Type(flagType), FileURL: flagURL})
			_, err := fmt.Fprintln(cmd.OutOrStdout(), html)
			return err
		},
	}
	cmd.Flags().StringVar(&flagType, "type", string(media.TypeAudio), "Media type (video or audio)")
	cmd.Flags().StringVar(&flagURL, "url", "", "URL of the media file")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
