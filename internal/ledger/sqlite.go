package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"eccorun/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLite stores the ledger as two insert-only tables. Several workers may
// share one database file; writers retry while the database is busy.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite initializes or connects to the ledger database at path.
func OpenSQLite(path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open sqlite", "database path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "open sqlite", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "open sqlite", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrLedger, "ledger", "open sqlite", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &SQLite{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrLedger, "ledger", "open sqlite", path, err)
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) RecordCompleted(ctx context.Context, id AttemptID, url string, result any) error {
	if err := checkWrite(id, url); err != nil {
		return err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "encode result", url, err)
	}
	err = s.execWithRetry(ctx,
		`INSERT INTO completed (shard, total, job, url, result, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id.Shard, id.Total, id.Job, url, string(payload), s.timestamp(),
	)
	if err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "insert completed", url, err)
	}
	return nil
}

func (s *SQLite) RecordFailed(ctx context.Context, id AttemptID, url string) error {
	if err := checkWrite(id, url); err != nil {
		return err
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO failed (shard, total, job, url, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		id.Shard, id.Total, id.Job, url, s.timestamp(),
	)
	if err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "insert failed", url, err)
	}
	return nil
}

func (s *SQLite) CompletedSet(ctx context.Context, shard int) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT url FROM completed WHERE shard = ?`, shard)
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "query completed", "", err)
	}
	defer rows.Close()

	done := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, services.Wrap(services.ErrLedger, "ledger", "scan completed", "", err)
		}
		done[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "query completed", "", err)
	}
	return done, nil
}

func (s *SQLite) FailureCounts(ctx context.Context, shard int) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, COUNT(*) FROM failed WHERE shard = ? GROUP BY url`, shard)
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "query failed", "", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			url   string
			count int
		)
		if err := rows.Scan(&url, &count); err != nil {
			return nil, services.Wrap(services.ErrLedger, "ledger", "scan failed", "", err)
		}
		counts[url] = count
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "query failed", "", err)
	}
	return counts, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *SQLite) execWithRetry(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
