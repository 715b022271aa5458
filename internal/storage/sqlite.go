package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"telegram2org/internal/model"
	"telegram2org/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Journal backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string, log *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordExport inserts an export record and populates its ID.
// A zero ExportedAt is set to the current time.
func (s *SQLite) RecordExport(ctx context.Context, e *model.Export) error {
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now()
	}
	at := e.ExportedAt.UTC().Format(timeLayout)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (run_id, task_date, title, dry_run, exported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.TaskDate, e.Title, boolToInt(e.DryRun), at,
	)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	e.ExportedAt, _ = time.Parse(timeLayout, at)
	return nil
}

// ListExports returns the most recent exports, newest first.
func (s *SQLite) ListExports(ctx context.Context, limit int) ([]model.Export, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, task_date, title, dry_run, exported_at
		 FROM exports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var exports []model.Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanExport(row scannable) (model.Export, error) {
	var e model.Export
	var dryRun int
	var at string
	if err := row.Scan(&e.ID, &e.RunID, &e.TaskDate, &e.Title, &dryRun, &at); err != nil {
		return e, fmt.Errorf("scan export: %w", err)
	}
	e.DryRun = dryRun == 1
	e.ExportedAt, _ = time.Parse(timeLayout, at)
	return e, nil
}
