package testsupport

import (
	"path/filepath"
	"testing"

	"eccorun/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The echo backend is selected so nothing reaches the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Input = filepath.Join(base, "input.jsonl.gz")
	cfgVal.Paths.OutDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "eo")
	cfgVal.Shard.Total = 1
	cfgVal.Shard.Rank = 0
	cfgVal.Attempt.JobID = "test-job"
	cfgVal.LLM.Backend = "echo"
	cfgVal.LLM.APIKey = ""
	cfgVal.Ledger.SQLitePath = filepath.Join(base, "out", "ledger.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithShard sets the worker pool size and this worker's rank.
func WithShard(rank, total int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Shard.Rank = rank
		b.cfg.Shard.Total = total
	}
}

// WithJob overrides the attempt identifier.
func WithJob(job string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Attempt.JobID = job
	}
}

// WithRecords writes a gzip JSONL input holding records and points the config at it.
func WithRecords(records ...Record) ConfigOption {
	return func(b *configBuilder) {
		WriteInput(b.t, b.cfg.Paths.Input, records...)
	}
}

// WithSQLiteLedger switches the ledger backend to sqlite.
func WithSQLiteLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Backend = "sqlite"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutDir)
}
