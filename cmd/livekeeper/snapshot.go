package main

import (
	"time"

	"github.com/spf13/cobra"

	"livekeeper/internal/capture"
)

func snapshotCmd() *cobra.Command {
	var (
		opts capture.Options
		out  string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a PNG of the viewer page using headless Chromium",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return capture.ToFile(cmd.Context(), opts, out)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://127.0.0.1:8080/", "page to capture")
	cmd.Flags().StringVar(&out, "out", "preview.png", "output PNG path")
	cmd.Flags().IntVar(&opts.Width, "width", capture.DefaultWidth, "viewport width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", capture.DefaultHeight, "viewport height in pixels")
	cmd.Flags().BoolVar(&opts.Tricolor, "tricolor", false, "reduce the image to black, white and red for e-paper signs")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall capture timeout")
	return cmd
}
