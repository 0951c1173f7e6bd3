package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"eccorun/internal/attempt"
	"eccorun/internal/config"
	"eccorun/internal/correction"
	"eccorun/internal/ledger"
	"eccorun/internal/logging"
	"eccorun/internal/preflight"
	"eccorun/internal/shard"
	"eccorun/internal/shardlock"
	"eccorun/internal/source"
)

type runFlags struct {
	input         string
	totalWorkers  int
	workerRank    int
	outDir        string
	jobID         string
	chunkLength   int
	maxFails      int
	modelName     string
	maxTime       int
	backend       string
	skipPreflight bool
	noLock        bool
	jsonOutput    bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one attempt over this worker's shard",
		Long: `Run one attempt over this worker's shard.

Records already completed by any earlier attempt are skipped, records that
failed more than --max-fails times are abandoned, and everything else is
corrected and appended to the ledger. The attempt ends when the shard is
exhausted or, with --max-time, after the first record that finishes past the
budget.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return runAttempt(cmd, cfg, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.input, "input", "", "Path to the .jsonl.gz input stream")
	f.IntVar(&flags.totalWorkers, "total-workers", 0, "Total number of worker processes")
	f.IntVar(&flags.workerRank, "worker-rank", 0, "Rank of this worker (0 to total-workers-1)")
	f.StringVar(&flags.outDir, "out-dir", "", "Directory holding the ledger files")
	f.StringVar(&flags.jobID, "jobid", "", "Identifier of this attempt (defaults to SLURM_JOB_ID)")
	f.IntVar(&flags.chunkLength, "chunk-length", 0, "Number of words per chunk")
	f.IntVar(&flags.maxFails, "max-fails", 0, "Failures after which a record is abandoned")
	f.StringVar(&flags.modelName, "model-name", "", "Model identifier sent to the correction endpoint")
	f.IntVar(&flags.maxTime, "max-time", 0, "Wall-clock budget in seconds (0 runs until the shard is exhausted)")
	f.StringVar(&flags.backend, "backend", "", "Correction backend: openai or echo")
	f.BoolVar(&flags.skipPreflight, "skip-preflight", false, "Start without checking input and output paths")
	f.BoolVar(&flags.noLock, "no-lock", false, "Do not take the per-shard lock")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print the attempt summary as JSON")
	return cmd
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.Paths.Input = flags.input
	}
	if changed("total-workers") {
		cfg.Shard.Total = flags.totalWorkers
	}
	if changed("worker-rank") {
		cfg.Shard.Rank = flags.workerRank
	}
	if changed("out-dir") {
		cfg.Paths.OutDir = flags.outDir
	}
	if changed("jobid") {
		cfg.Attempt.JobID = flags.jobID
	}
	if changed("chunk-length") {
		cfg.Attempt.ChunkLength = flags.chunkLength
	}
	if changed("max-fails") {
		cfg.Attempt.MaxFails = flags.maxFails
	}
	if changed("model-name") {
		cfg.LLM.Model = flags.modelName
	}
	if changed("max-time") {
		cfg.Attempt.MaxTimeSeconds = flags.maxTime
	}
	if changed("backend") {
		cfg.LLM.Backend = flags.backend
	}
	if flags.noLock {
		cfg.Attempt.Lock = false
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	return cfg.Validate()
}

func runAttempt(cmd *cobra.Command, cfg *config.Config, flags runFlags) (err error) {
	job := cfg.EnsureJobID()
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg, job)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if cfg.Attempt.Lock {
		lock, err := shardlock.Acquire(cfg.Paths.OutDir, cfg.Shard.Rank)
		if err != nil {
			if errors.Is(err, shardlock.ErrHeld) {
				return fmt.Errorf("shard %d already has a live attempt: %w", cfg.Shard.Rank, err)
			}
			return err
		}
		logger.Debug("shard lock acquired", logging.String("path", lock.Path()))
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				logger.Warn("release shard lock", logging.String("path", lock.Path()), logging.Error(releaseErr))
			}
		}()
	}

	if !flags.skipPreflight {
		if failed := preflight.Failed(preflight.RunLocal(cfg)); len(failed) > 0 {
			parts := make([]string, 0, len(failed))
			for _, r := range failed {
				parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
			}
			return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
		}
	}

	l, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	assignment := shard.Assignment{Rank: cfg.Shard.Rank, Total: cfg.Shard.Total}
	src, err := source.Open(cfg.Paths.Input, assignment)
	if err != nil {
		return err
	}
	defer src.Close()

	backend, err := correction.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	runner, err := attempt.New(src, l, backend, attempt.Options{
		ID:          ledger.AttemptID{Shard: cfg.Shard.Rank, Total: cfg.Shard.Total, Job: job},
		ChunkLength: cfg.Attempt.ChunkLength,
		MaxFails:    cfg.Attempt.MaxFails,
		MaxTime:     cfg.MaxTime(),
		Model:       backend.Model,
	}, logger)
	if err != nil {
		return err
	}

	summary, runErr := runner.Run(cmd.Context())
	if flags.jsonOutput {
		if err := writeJSON(cmd, runSummaryJSON(job, assignment, summary, runErr)); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Attempt %s (%s): %s\n", job, assignment, summary.State)
		fmt.Fprintf(out, "  seen %d, processed %d (completed %d, failed %d), skipped %d, abandoned %d in %s\n",
			summary.Seen, summary.Processed(), summary.Completed, summary.Failed, summary.Skipped, summary.Abandoned,
			summary.Elapsed.Round(time.Millisecond))
	}
	return runErr
}

type runSummary struct {
	Job     string          `json:"job"`
	Rank    int             `json:"rank"`
	Total   int             `json:"total"`
	Summary attempt.Summary `json:"summary"`
	Error   string          `json:"error,omitempty"`
}

func runSummaryJSON(job string, a shard.Assignment, s attempt.Summary, err error) runSummary {
	out := runSummary{Job: job, Rank: a.Rank, Total: a.Total, Summary: s}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
