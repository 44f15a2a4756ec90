package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	cfgpkg "synthbrain/internal/config"
)

// synthbrain image <operation> <prompt>
func newImageCmd(cf *commonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "image <operation> <prompt>",
		Short: "Request an image operation",
		Long: `Request an image operation. The only operation is "generate", which
saves the image as <prompt with spaces replaced by underscores>.png.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, prompt := args[0], args[1]
			if op != "generate" {
				warnUnknownOperation("image", op, "generate")
				return nil
			}
			cfg, err := loadConfig(cmd, cf, cfgpkg.Overrides{})
			if err != nil {
				return failed(err)
			}
			runner, err := newRunner(cfg)
			if err != nil {
				return failed(err)
			}
			ctx := cmd.Context()
			res, err := runner.GenerateImage(ctx, prompt)
			if err != nil {
				return failed(err)
			}
			if err := publishResult(ctx, cfg, res); err != nil {
				return failed(err)
			}
			slog.Info("image generated", "prompt", prompt, "path", res.Path)
			return nil
		},
	}
}
