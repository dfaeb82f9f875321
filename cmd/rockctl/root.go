package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/rockwatch/pkg/logger"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rockctl",
		Short: "rockctl - offline tools for the rockwatch risk pipeline",
		Long: `rockctl runs the rockfall risk pipeline without the server.

It evaluates a readings file against the threshold table, validates
threshold files, and issues operator tokens for the HTTP API.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newThresholdsCommand())
	cmd.AddCommand(newTokenCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// commandLogger writes to stderr so command output stays parseable.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := "warn"
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	return logger.NewWithWriter(os.Stderr, level)
}
