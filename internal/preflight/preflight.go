package preflight

import (
	"context"
	"strings"

	"eccorun/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunLocal executes the filesystem checks an attempt needs before it starts.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckInput("Input", cfg.Paths.Input),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Output disk space", cfg.Paths.OutDir, MinFreeBytes),
	}
}

// RunAll executes the local checks plus the shard lock and correction
// endpoint checks when those features are enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := RunLocal(cfg)
	if cfg.Attempt.Lock {
		results = append(results, CheckShardLock("Shard lock", cfg.Paths.OutDir, cfg.Shard.Rank))
	}
	if strings.EqualFold(cfg.LLM.Backend, "openai") {
		results = append(results, CheckLLM(ctx, "Correction endpoint", cfg.LLM))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
