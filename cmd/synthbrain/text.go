package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	cfgpkg "synthbrain/internal/config"
)

// synthbrain text <operation> <prompt>
func newTextCmd(cf *commonFlags) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "text <operation> <prompt>",
		Short: "Request a text operation",
		Long: `Request a text operation. The only operation is "complete", which
appends the prompt and every returned choice to the transcript file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, prompt := args[0], args[1]
			if op != "complete" {
				warnUnknownOperation("text", op, "complete")
				return nil
			}
			var flagOv cfgpkg.Overrides
			if cmd.Flags().Changed("model") {
				flagOv.TextModel = &model
			}
			cfg, err := loadConfig(cmd, cf, flagOv)
			if err != nil {
				return failed(err)
			}
			runner, err := newRunner(cfg)
			if err != nil {
				return failed(err)
			}
			ctx := cmd.Context()
			res, err := runner.CompleteText(ctx, prompt)
			if err != nil {
				return failed(err)
			}
			if err := publishResult(ctx, cfg, res); err != nil {
				return failed(err)
			}
			slog.Info("completion saved", "model", cfg.TextModel, "path", res.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Chat model (default gpt-3.5-turbo)")
	return cmd
}
