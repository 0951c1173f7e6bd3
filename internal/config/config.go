package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input and output locations.
type Paths struct {
	Input  string `toml:"input"`
	OutDir string `toml:"out_dir"`
	LogDir string `toml:"log_dir"`
}

// Shard identifies this worker's slice of the input.
type Shard struct {
	Total int `toml:"total"`
	Rank  int `toml:"rank"`
}

// Attempt contains per-run processing knobs.
type Attempt struct {
	JobID          string `toml:"job_id"`
	ChunkLength    int    `toml:"chunk_length"`
	MaxFails       int    `toml:"max_fails"`
	MaxTimeSeconds int    `toml:"max_time_seconds"` // 0 runs until the shard is exhausted
	Lock           bool   `toml:"lock"`
}

// Ledger selects the durable store for completion and failure records.
type Ledger struct {
	Backend    string `toml:"backend"` // "files" or "sqlite"
	SQLitePath string `toml:"sqlite_path"`
}

// LLM contains the correction backend settings.
type LLM struct {
	Backend        string  `toml:"backend"` // "openai" or "echo"
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TopK           int     `toml:"top_k"`
	TopP           float64 `toml:"top_p"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Concurrency    int     `toml:"concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Monitor contains settings for the resubmission planner.
type Monitor struct {
	MaxInQueue    int    `toml:"max_in_queue"`
	ExpectedTotal int    `toml:"expected_total"`
	RunName       string `toml:"run_name"`
	Script        string `toml:"script"`
	QueuePrefix   string `toml:"queue_prefix"`
	StdoutDir     string `toml:"stdout_dir"`
}

// Config encapsulates all configuration values for eccorun.
//
// Configuration sections by subsystem:
//   - Paths: input stream, ledger output directory, attempt logs
//   - Shard: total worker count and this worker's rank
//   - Attempt: job id, chunk size, failure budget, wall-clock budget
//   - Ledger: file-backed or sqlite-backed bookkeeping
//   - LLM: correction endpoint and sampling parameters
//   - Logging: log format and level
//   - Monitor: scheduler queue limits and sbatch script
type Config struct {
	Paths   Paths   `toml:"paths"`
	Shard   Shard   `toml:"shard"`
	Attempt Attempt `toml:"attempt"`
	Ledger  Ledger  `toml:"ledger"`
	LLM     LLM     `toml:"llm"`
	Logging Logging `toml:"logging"`
	Monitor Monitor `toml:"monitor"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/eccorun/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("eccorun.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EnsureJobID returns the attempt id, generating one when neither the config
// nor SLURM_JOB_ID supplied it. The generated id is stored so later callers
// see the same value.
func (c *Config) EnsureJobID() string {
	if c.Attempt.JobID == "" {
		c.Attempt.JobID = uuid.NewString()
	}
	return c.Attempt.JobID
}

// MaxTime returns the wall-clock budget for one attempt, or zero for none.
func (c *Config) MaxTime() time.Duration {
	if c.Attempt.MaxTimeSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Attempt.MaxTimeSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
