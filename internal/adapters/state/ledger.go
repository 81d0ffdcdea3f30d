package state

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

//go:embed migrations/001_run_ledger.sql
var ledgerMigrationV1 string

// SQLiteLedger records worker dispatch history in SQLite.
type SQLiteLedger struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// NewSQLiteLedger opens (or creates) the ledger database and migrates it.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{path: path, db: db}
	if err := l.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return l, nil
}

// migrate runs pending migrations.
func (l *SQLiteLedger) migrate() error {
	var version int
	err := l.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// table doesn't exist yet
		version = 0
	}

	if version < 1 {
		if _, err := l.db.Exec(ledgerMigrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Record appends one event.
func (l *SQLiteLedger) Record(ctx context.Context, ev core.RunEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	var exitCode sql.NullInt64
	if ev.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*ev.ExitCode), Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, topic_id, kind, status, pid, exit_code, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.TopicID, string(ev.Kind), string(ev.Status), ev.PID, exitCode, ev.Detail,
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s for %s: %w", ev.Kind, ev.TopicID, err)
	}
	return nil
}

// History returns events newest first.
func (l *SQLiteLedger) History(ctx context.Context, q core.RunQuery) ([]core.RunEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT run_id, topic_id, kind, status, pid, exit_code, detail, created_at FROM run_events`
	args := []interface{}{}
	if q.TopicID != "" {
		query += ` WHERE topic_id = ?`
		args = append(args, q.TopicID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var out []core.RunEvent
	for rows.Next() {
		var (
			ev        core.RunEvent
			kind      string
			status    string
			exitCode  sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&ev.RunID, &ev.TopicID, &kind, &status, &ev.PID, &exitCode, &ev.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		ev.Kind = core.RunEventKind(kind)
		ev.Status = core.TopicStatus(status)
		if exitCode.Valid {
			code := int(exitCode.Int64)
			ev.ExitCode = &code
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ev.CreatedAt = t
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Path returns the database path.
func (l *SQLiteLedger) Path() string {
	return l.path
}

// NopLedger discards everything. Used when no ledger path is configured.
type NopLedger struct{}

func (NopLedger) Record(context.Context, core.RunEvent) error { return nil }

func (NopLedger) History(context.Context, core.RunQuery) ([]core.RunEvent, error) {
	return nil, nil
}

func (NopLedger) Close() error { return nil }

// OpenLedger returns a SQLite ledger, or a NopLedger when path is empty.
func OpenLedger(path string) (core.RunLedger, error) {
	if path == "" {
		return NopLedger{}, nil
	}
	return NewSQLiteLedger(path)
}

var (
	_ core.RunLedger = (*SQLiteLedger)(nil)
	_ core.RunLedger = NopLedger{}
)
