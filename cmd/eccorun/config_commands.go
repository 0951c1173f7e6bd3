package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"eccorun/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

// sampleTarget resolves where config init writes, defaulting to the user
// config directory.
func sampleTarget(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(flagValue)
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sampleTarget(targetPath)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("%s already exists (pass --overwrite to replace it)", target)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nEdit paths.input, shard.total and llm.base_url before submitting attempts.\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report what an attempt would use",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			source := statusOK
			if !exists {
				source = statusWarn
				path += " (missing, defaults used)"
			}
			lines := []struct {
				label string
				kind  statusKind
				text  string
			}{
				{"File", source, path},
				{"Input", statusInfo, cfg.Paths.Input},
				{"Shards", statusInfo, fmt.Sprintf("rank %d of %d", cfg.Shard.Rank, cfg.Shard.Total)},
				{"Ledger", statusInfo, fmt.Sprintf("%s in %s", cfg.Ledger.Backend, ledgerLocation(cfg))},
				{"Correction", statusInfo, fmt.Sprintf("%s (%s)", cfg.LLM.Backend, cfg.LLM.Model)},
				{"Budget", statusInfo, fmt.Sprintf("max %d failures, max time %s", cfg.Attempt.MaxFails, maxTimeLabel(cfg))},
			}
			for _, l := range lines {
				fmt.Fprintln(out, renderStatusLine(l.label, l.kind, l.text, colorize))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func maxTimeLabel(cfg *config.Config) string {
	if d := cfg.MaxTime(); d > 0 {
		return d.String()
	}
	return "unlimited"
}
