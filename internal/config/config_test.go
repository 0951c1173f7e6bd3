package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"eccorun/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SLURM_JOB_ID", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "eccorun", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if !filepath.IsAbs(cfg.Paths.OutDir) || filepath.Base(cfg.Paths.OutDir) != "ecco_run_out" {
		t.Fatalf("unexpected out dir: %q", cfg.Paths.OutDir)
	}
	if cfg.Attempt.ChunkLength != 300 || cfg.Attempt.MaxFails != 3 {
		t.Fatalf("unexpected attempt defaults: %+v", cfg.Attempt)
	}
	if cfg.MaxTime() != 0 {
		t.Fatalf("expected no wall-clock budget by default, got %s", cfg.MaxTime())
	}
	if !cfg.Attempt.Lock {
		t.Fatal("expected shard lock enabled by default")
	}
	if cfg.LLM.Model != "meta-llama/Llama-3.1-70B-Instruct" {
		t.Fatalf("unexpected model: %q", cfg.LLM.Model)
	}
	if cfg.Ledger.Backend != "files" {
		t.Fatalf("unexpected ledger backend: %q", cfg.Ledger.Backend)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "eccorun.toml")

	type payload struct {
		Paths struct {
			OutDir string `toml:"out_dir"`
		} `toml:"paths"`
		Shard struct {
			Total int `toml:"total"`
			Rank  int `toml:"rank"`
		} `toml:"shard"`
		Attempt struct {
			JobID          string `toml:"job_id"`
			MaxTimeSeconds int    `toml:"max_time_seconds"`
		} `toml:"attempt"`
		Ledger struct {
			Backend string `toml:"backend"`
		} `toml:"ledger"`
	}
	custom := payload{}
	custom.Paths.OutDir = filepath.Join(tempDir, "out")
	custom.Shard.Total = 200
	custom.Shard.Rank = 17
	custom.Attempt.JobID = "991"
	custom.Attempt.MaxTimeSeconds = 3600
	custom.Ledger.Backend = "SQLite"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Shard.Total != 200 || cfg.Shard.Rank != 17 {
		t.Fatalf("unexpected shard: %+v", cfg.Shard)
	}
	if cfg.EnsureJobID() != "991" {
		t.Fatalf("expected job id from file, got %q", cfg.Attempt.JobID)
	}
	if cfg.MaxTime() != time.Hour {
		t.Fatalf("expected 1h budget, got %s", cfg.MaxTime())
	}
	if cfg.Ledger.Backend != "sqlite" {
		t.Fatalf("expected lowercased backend, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.SQLitePath != filepath.Join(tempDir, "out", "ledger.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Ledger.SQLitePath)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "eccorun.toml")
	if err := os.WriteFile(configPath, []byte("[shard]\nworkers = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestJobIDFallsBackToSlurmThenUUID(t *testing.T) {
	t.Setenv("SLURM_JOB_ID", " 12345 ")
	cfg := config.Default()
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := cfg.EnsureJobID(); got != "12345" {
		t.Fatalf("expected slurm job id, got %q", got)
	}

	os.Unsetenv("SLURM_JOB_ID")
	cfg = config.Default()
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	first := cfg.EnsureJobID()
	if len(first) != 36 {
		t.Fatalf("expected generated uuid, got %q", first)
	}
	if second := cfg.EnsureJobID(); second != first {
		t.Fatalf("expected stable generated id, got %q then %q", first, second)
	}
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("ECCORUN_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	os.Unsetenv("ECCORUN_API_KEY")
	cfg := config.Default()
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero total", func(c *config.Config) { c.Shard.Total = 0 }, "shard.total"},
		{"rank out of range", func(c *config.Config) { c.Shard.Total = 4; c.Shard.Rank = 4 }, "shard.rank"},
		{"negative rank", func(c *config.Config) { c.Shard.Rank = -1 }, "shard.rank"},
		{"chunk length", func(c *config.Config) { c.Attempt.ChunkLength = 0 }, "chunk_length"},
		{"max fails", func(c *config.Config) { c.Attempt.MaxFails = -1 }, "max_fails"},
		{"job id path", func(c *config.Config) { c.Attempt.JobID = "a/b" }, "job_id"},
		{"ledger backend", func(c *config.Config) { c.Ledger.Backend = "redis" }, "ledger.backend"},
		{"llm backend", func(c *config.Config) { c.LLM.Backend = "vllm" }, "llm.backend"},
		{"top p", func(c *config.Config) { c.LLM.TopP = 2 }, "top_p"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.LLM.TopK != 65 || cfg.Monitor.QueuePrefix != "EB" {
		t.Fatalf("unexpected sample values: %+v %+v", cfg.LLM, cfg.Monitor)
	}
}
