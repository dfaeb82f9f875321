package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/rockwatch/internal/infra/thresholdfile"
)

func newThresholdsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Inspect and validate threshold tables",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a threshold table file",
		Args:  cobra.ExactArgs(1),
		RunE:  runThresholdsValidate,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the built-in threshold table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(thresholdfile.DefaultBytes())
			return err
		},
	})
	return cmd
}

func runThresholdsValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read threshold file: %w", err)
	}
	out := cmd.OutOrStdout()
	if problems := thresholdfile.Validate(data); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(out, "✗ %s\n", p)
		}
		return &ValidationError{Problems: problems}
	}
	// Band ordering and required sensors are checked when the table is built.
	table, err := thresholdfile.Parse(data)
	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return &ValidationError{Problems: []string{err.Error()}}
	}
	fmt.Fprintf(out, "✓ %s: %d sensors\n", args[0], len(table.Sensors()))
	return nil
}
