package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/bestof/orchestrator"
	"github.com/maastricht-university/bestof/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "watch <inbox-dir>",
		Short: "Build a reel for every archive dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.log()
			p, err := orchestrator.NewPipeline(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			p = p.WithUpload(upload)

			handler := func(runCtx context.Context, path string) error {
				res, err := p.RunInto(runCtx, path, watcher.OutDirFor(cfg.Paths.Outputs, path))
				if err != nil {
					return err
				}
				log.WithField("output", res.OutputPath).
					WithField("clips", res.Clips).
					Info("reel ready")
				return nil
			}

			w, err := watcher.New(args[0], handler, log, cfg.Performance.MaxConcurrent)
			if err != nil {
				return err
			}
			defer w.Stop()

			if err := w.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64("keep-pct", 0, "Share of the input duration to keep, in percent")
	flags.String("out-dir", "", "Root directory receiving one sub-directory per archive")
	flags.BoolVar(&upload, "upload", false, "Upload every finished reel to services.upload.url")

	ctx.bind(cmd, "selection.keep_pct", "keep-pct")
	ctx.bind(cmd, "paths.outputs", "out-dir")
	return cmd
}
