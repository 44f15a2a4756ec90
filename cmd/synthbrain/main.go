package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command line and returns the process exit code:
// 0 on success, 1 when the pipeline failed, 2 on usage errors.
func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var pe *pipelineError
	if errors.As(err, &pe) {
		slog.Error("command failed", "err", pe.err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
	fmt.Fprint(os.Stderr, root.UsageString())
	return 2
}

func newRootCmd() *cobra.Command {
	var cf commonFlags
	root := &cobra.Command{
		Use:   "synthbrain",
		Short: "Command-line AI assistance",
		Long: `synthbrain sends one prompt to an AI endpoint and saves the result.

Examples:
  synthbrain image generate "a red fox"
  synthbrain text complete "write a haiku about rain"
  synthbrain speech ./memo.m4a --output both`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(cf.logLevel)
		},
	}
	addCommonFlags(root, &cf)
	root.AddCommand(
		newImageCmd(&cf),
		newTextCmd(&cf),
		newSpeechCmd(&cf),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
