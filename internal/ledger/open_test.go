package ledger

import (
	"errors"
	"path/filepath"
	"testing"

	"eccorun/internal/config"
	"eccorun/internal/services"
)

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutDir = t.TempDir()
	cfg.Ledger.SQLitePath = filepath.Join(cfg.Paths.OutDir, "ledger.db")

	l, err := Open(&cfg)
	if err != nil {
		t.Fatalf("open files: %v", err)
	}
	if _, ok := l.(*Files); !ok {
		t.Fatalf("default backend = %T, want *Files", l)
	}
	_ = l.Close()

	cfg.Ledger.Backend = "sqlite"
	l, err = Open(&cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := l.(*SQLite); !ok {
		t.Fatalf("sqlite backend = %T, want *SQLite", l)
	}
	_ = l.Close()

	cfg.Ledger.Backend = "redis"
	if _, err := Open(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
