// Package store owns the SQLite record database. Records are written by the
// import cycle and read as a snapshot per request by the resolution engine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"orgcal/internal/model"
)

// SQLiteStore is the record store backed by a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at dbPath, enables WAL mode, and runs
// any pending schema migrations.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// WAL gives concurrent readers during the import transaction.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const insertTaskSQL = `
	INSERT INTO tasks (
		title, todo,
		scheduled_start_date, scheduled_start_time,
		scheduled_end_date, scheduled_end_time, scheduled_all_day,
		scheduled_repeater_type, scheduled_repeater_value, scheduled_repeater_unit,
		scheduled_warning_type, scheduled_warning_value, scheduled_warning_unit,
		deadline_start_date, deadline_start_time,
		deadline_end_date, deadline_end_time, deadline_all_day,
		deadline_repeater_type, deadline_repeater_value, deadline_repeater_unit,
		deadline_warning_type, deadline_warning_value, deadline_warning_unit,
		ts_start_date, ts_start_time,
		ts_end_date, ts_end_time, ts_all_day,
		ts_repeater_type, ts_repeater_value, ts_repeater_unit,
		ts_warning_type, ts_warning_value, ts_warning_unit,
		tags, file, parent, kind, created_at
	) VALUES (
		:title, :todo,
		:scheduled_start_date, :scheduled_start_time,
		:scheduled_end_date, :scheduled_end_time, :scheduled_all_day,
		:scheduled_repeater_type, :scheduled_repeater_value, :scheduled_repeater_unit,
		:scheduled_warning_type, :scheduled_warning_value, :scheduled_warning_unit,
		:deadline_start_date, :deadline_start_time,
		:deadline_end_date, :deadline_end_time, :deadline_all_day,
		:deadline_repeater_type, :deadline_repeater_value, :deadline_repeater_unit,
		:deadline_warning_type, :deadline_warning_value, :deadline_warning_unit,
		:ts_start_date, :ts_start_time,
		:ts_end_date, :ts_end_time, :ts_all_day,
		:ts_repeater_type, :ts_repeater_value, :ts_repeater_unit,
		:ts_warning_type, :ts_warning_value, :ts_warning_unit,
		:tags, :file, :parent, :kind, :created_at
	)`

// ReplaceTasks wipes the tasks table and inserts the given batch inside a
// single transaction, so readers see either the old or the new record set.
func (s *SQLiteStore) ReplaceTasks(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	if err := insertTasksTx(ctx, tx, tasks); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertTasks appends a batch of tasks without wiping existing rows.
func (s *SQLiteStore) InsertTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertTasksTx(ctx, tx, tasks); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTasksTx(ctx context.Context, tx *sqlx.Tx, tasks []model.Task) error {
	stmt, err := tx.PrepareNamedContext(ctx, insertTaskSQL)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range tasks {
		t := tasks[i]
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, t); err != nil {
			return fmt.Errorf("inserting task %q: %w", t.Title, err)
		}
	}
	return nil
}

// FetchAll returns a snapshot of all records in insertion order.
func (s *SQLiteStore) FetchAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, "SELECT * FROM tasks ORDER BY id"); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks returns the number of stored records.
func (s *SQLiteStore) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tasks"); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}

// RecordSnapshot stores the outcome of one sync cycle.
func (s *SQLiteStore) RecordSnapshot(ctx context.Context, snap model.Snapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO snapshots (commit_hash, status, log, timestamp)
		VALUES (:commit_hash, :status, :log, :timestamp)`, snap)
	if err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent sync outcome, or nil if no sync has
// run yet.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.GetContext(ctx, &snap,
		"SELECT * FROM snapshots ORDER BY id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	return &snap, nil
}
