package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eccorun/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		scheduler  bool
	)

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check input, output directories, disk space, shard lock and endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if scheduler {
				results = append(results, preflight.RunScheduler(cfg)...)
			}
			failed := preflight.Failed(results)

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d preflight checks failed", len(failed), len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&scheduler, "scheduler", false, "Also check sbatch, squeue and the submission script")
	return cmd
}
