package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	cfgpkg "synthbrain/internal/config"
)

var stderrIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// synthbrain speech <filepath>
func newSpeechCmd(cf *commonFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "speech <filepath>",
		Short: "Request speech-to-text transcription",
		Long: `Transcribe an audio file. With --output file (default) the text is
written to <audio name>.txt; print writes it to stdout; both does both.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioPath := args[0]
			var flagOv cfgpkg.Overrides
			if cmd.Flags().Changed("output") {
				flagOv.SpeechOutput = &output
			}
			cfg, err := loadConfig(cmd, cf, flagOv)
			if err != nil {
				return failed(err)
			}
			runner, err := newRunner(cfg)
			if err != nil {
				return failed(err)
			}
			if info, err := os.Stat(audioPath); err == nil && stderrIsTerminal() {
				fmt.Fprintf(os.Stderr, "uploading %s (%d KiB)\n", audioPath, (info.Size()+1023)/1024)
			}
			ctx := cmd.Context()
			res, err := runner.Transcribe(ctx, audioPath)
			if err != nil {
				return failed(err)
			}
			if err := publishResult(ctx, cfg, res); err != nil {
				return failed(err)
			}
			slog.Info("transcription complete", "audio", audioPath, "output", cfg.SpeechOutput, "path", res.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", cfgpkg.SpeechOutputFile, "Transcript output: file, print, both")
	return cmd
}
