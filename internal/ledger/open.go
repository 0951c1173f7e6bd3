package ledger

import (
	"fmt"
	"strings"

	"eccorun/internal/config"
	"eccorun/internal/services"
)

// Open returns the backend selected in cfg.
func Open(cfg *config.Config) (Ledger, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", "config is required", nil)
	}
	switch strings.ToLower(cfg.Ledger.Backend) {
	case "", "files":
		return NewFiles(cfg.Paths.OutDir)
	case "sqlite":
		return OpenSQLite(cfg.Ledger.SQLitePath)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", fmt.Sprintf("unknown backend %q", cfg.Ledger.Backend), nil)
	}
}
