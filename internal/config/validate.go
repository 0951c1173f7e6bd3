package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateShard(); err != nil {
		return err
	}
	if err := c.validateAttempt(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return c.validateMonitor()
}

func (c *Config) validateShard() error {
	if c.Shard.Total <= 0 {
		return errors.New("shard.total must be positive")
	}
	if c.Shard.Rank < 0 || c.Shard.Rank >= c.Shard.Total {
		return fmt.Errorf("shard.rank must be between 0 and %d", c.Shard.Total-1)
	}
	return nil
}

func (c *Config) validateAttempt() error {
	if c.Attempt.ChunkLength <= 0 {
		return errors.New("attempt.chunk_length must be positive")
	}
	if c.Attempt.MaxFails < 0 {
		return errors.New("attempt.max_fails must be >= 0")
	}
	if strings.ContainsAny(c.Attempt.JobID, `/\`) {
		return errors.New("attempt.job_id must not contain path separators")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case "files":
		if strings.TrimSpace(c.Paths.OutDir) == "" {
			return errors.New("paths.out_dir must be set for the files ledger")
		}
	case "sqlite":
		if strings.TrimSpace(c.Ledger.SQLitePath) == "" {
			return errors.New("ledger.sqlite_path must be set for the sqlite ledger")
		}
	default:
		return fmt.Errorf("ledger.backend: unsupported value %q (want files or sqlite)", c.Ledger.Backend)
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Backend {
	case "openai", "echo":
	default:
		return fmt.Errorf("llm.backend: unsupported value %q (want openai or echo)", c.LLM.Backend)
	}
	if c.LLM.Temperature < 0 {
		return errors.New("llm.temperature must be >= 0")
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return errors.New("llm.top_p must be between 0 and 1")
	}
	if c.LLM.TopK < 0 {
		return errors.New("llm.top_k must be >= 0")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if c.Monitor.MaxInQueue < 0 {
		return errors.New("monitor.max_in_queue must be >= 0")
	}
	if c.Monitor.ExpectedTotal < 0 {
		return errors.New("monitor.expected_total must be >= 0")
	}
	return nil
}
