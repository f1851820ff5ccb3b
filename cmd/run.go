package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/bestof/orchestrator"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "run <archive.zip>",
		Short: "Build the best-of reel for one archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p, err := orchestrator.NewPipeline(cmd.Context(), cfg, ctx.log())
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			if upload {
				p = p.WithUpload(true)
			}
			res, err := p.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}

	flags := cmd.Flags()
	flags.Float64("keep-pct", 0, "Share of the input duration to keep, in percent")
	flags.String("out-dir", "", "Directory receiving bestof.mp3 and clips_selected.json")
	flags.String("model", "", "Scoring model name")
	flags.String("provider", "", "Scoring provider (openai, gemini)")
	flags.String("prompt-doc", "", "Document id of the scoring system prompt")
	flags.BoolVar(&upload, "upload", false, "Upload the finished reel to services.upload.url")

	ctx.bind(cmd, "selection.keep_pct", "keep-pct")
	ctx.bind(cmd, "paths.outputs", "out-dir")
	ctx.bind(cmd, "scoring.model", "model")
	ctx.bind(cmd, "scoring.provider", "provider")
	ctx.bind(cmd, "services.prompt.doc_id", "prompt-doc")
	return cmd
}
