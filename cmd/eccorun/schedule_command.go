package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"eccorun/internal/config"
	"eccorun/internal/ledger"
	"eccorun/internal/monitor"
)

func monitorOptions(cfg *config.Config) monitor.Options {
	return monitor.Options{
		Total:         cfg.Shard.Total,
		ExpectedTotal: cfg.Monitor.ExpectedTotal,
		MaxInQueue:    cfg.Monitor.MaxInQueue,
		RunName:       cfg.Monitor.RunName,
		Script:        cfg.Monitor.Script,
		QueuePrefix:   cfg.Monitor.QueuePrefix,
		StdoutDir:     cfg.Monitor.StdoutDir,
	}
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var (
		runName    string
		maxInQueue int
		queueFile  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Plan sbatch submissions for unfinished shards",
		Long: `Plan sbatch submissions for unfinished shards.

Pipe the scheduler queue listing (for example "squeue -u $USER") on stdin or
pass --queue-file. Shards named {prefix}NNN in the listing, and shards whose
lock is held, count as in queue. The output is a shell script: comments
describe every shard and each unfinished shard gets an sbatch line until
--max-in-queue is reached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(cfg *config.Config, l ledger.Ledger) error {
				opts := monitorOptions(cfg)
				if cmd.Flags().Changed("run-name") {
					opts.RunName = strings.TrimSpace(runName)
				}
				if cmd.Flags().Changed("max-in-queue") {
					opts.MaxInQueue = maxInQueue
				}
				if opts.RunName == "" {
					return fmt.Errorf("a run name is required (--run-name or monitor.run_name)")
				}

				queued, err := readQueue(cmd, queueFile, opts.QueuePrefix)
				if err != nil {
					return err
				}
				live, err := monitor.LiveShards(cfg.Paths.OutDir, opts.Total)
				if err != nil {
					return err
				}
				for rank := range live {
					queued[rank] = struct{}{}
				}

				counts, err := monitor.Scan(cmd.Context(), l, opts.Total, cfg.Attempt.MaxFails, 0)
				if err != nil {
					return err
				}
				plan := monitor.BuildPlan(counts, queued, opts)
				if jsonOutput {
					return writeJSON(cmd, plan)
				}
				return plan.WriteScript(cmd.OutOrStdout(), opts)
			})
		},
	}

	cmd.Flags().StringVar(&runName, "run-name", "", "Name of the run, used for scheduler log files")
	cmd.Flags().IntVar(&maxInQueue, "max-in-queue", 0, "Maximum number of jobs in the queue")
	cmd.Flags().StringVar(&queueFile, "queue-file", "", "Read the queue listing from a file instead of stdin")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the plan as JSON")
	return cmd
}

// readQueue parses the queue listing from queueFile, or from stdin unless
// stdin is an interactive terminal.
func readQueue(cmd *cobra.Command, queueFile, prefix string) (map[int]struct{}, error) {
	var in io.Reader
	switch {
	case strings.TrimSpace(queueFile) != "":
		file, err := os.Open(queueFile)
		if err != nil {
			return nil, fmt.Errorf("open queue listing: %w", err)
		}
		defer file.Close()
		in = file
	default:
		in = cmd.InOrStdin()
		if file, ok := in.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
			return map[int]struct{}{}, nil
		}
	}
	return monitor.ParseQueue(in, prefix)
}
