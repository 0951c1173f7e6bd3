package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Normalize trims values, expands paths, and applies environment fallbacks.
// Callers that override fields after Load (for example from CLI flags) must
// call Normalize and Validate again.
func (c *Config) Normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAttempt()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeLogging()
	c.normalizeMonitor()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.Input, err = expandPath(strings.TrimSpace(c.Paths.Input)); err != nil {
		return fmt.Errorf("paths.input: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutDir) == "" {
		c.Paths.OutDir = defaultOutDir
	}
	if c.Paths.OutDir, err = expandPath(strings.TrimSpace(c.Paths.OutDir)); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAttempt() {
	c.Attempt.JobID = strings.TrimSpace(c.Attempt.JobID)
	if c.Attempt.JobID == "" {
		if value, ok := os.LookupEnv("SLURM_JOB_ID"); ok {
			c.Attempt.JobID = strings.TrimSpace(value)
		}
	}
	if c.Attempt.MaxTimeSeconds < 0 {
		c.Attempt.MaxTimeSeconds = 0
	}
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	if c.Ledger.Backend != "sqlite" {
		return nil
	}
	if strings.TrimSpace(c.Ledger.SQLitePath) == "" {
		c.Ledger.SQLitePath = filepath.Join(c.Paths.OutDir, defaultSQLiteName)
	}
	var err error
	if c.Ledger.SQLitePath, err = expandPath(strings.TrimSpace(c.Ledger.SQLitePath)); err != nil {
		return fmt.Errorf("ledger.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Backend = strings.ToLower(strings.TrimSpace(c.LLM.Backend))
	if c.LLM.Backend == "" {
		c.LLM.Backend = defaultLLMBackend
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("ECCORUN_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.LLM.Concurrency <= 0 {
		c.LLM.Concurrency = defaultLLMConcurrency
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMonitor() {
	c.Monitor.RunName = strings.TrimSpace(c.Monitor.RunName)
	c.Monitor.Script = strings.TrimSpace(c.Monitor.Script)
	if c.Monitor.Script == "" {
		c.Monitor.Script = defaultSbatchScript
	}
	c.Monitor.QueuePrefix = strings.TrimSpace(c.Monitor.QueuePrefix)
	if c.Monitor.QueuePrefix == "" {
		c.Monitor.QueuePrefix = defaultQueuePrefix
	}
	c.Monitor.StdoutDir = strings.TrimSpace(c.Monitor.StdoutDir)
	if c.Monitor.StdoutDir == "" {
		c.Monitor.StdoutDir = defaultStdoutDir
	}
}
