package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"eccorun/internal/config"
	"eccorun/internal/ledger"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// configPath is the --config value; empty selects the default lookup.
func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads the configuration at most once per invocation. Commands
// that write create their directories after applying flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, _, _, c.configErr = config.Load(c.configPath())
	})
	return c.config, c.configErr
}

// withLedger opens the configured ledger for read-mostly commands.
func (c *commandContext) withLedger(fn func(*config.Config, ledger.Ledger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	l, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(cfg, l)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
