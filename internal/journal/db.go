// Package journal persists the append-only undo journal in SQLite.
//
// Every device mutation is preceded by exactly one record capturing the
// package's pre-action state. Records are never updated or deleted; a
// restore appends a new record rather than erasing history.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned when the journal database exists but its
// schema has not been created yet.
var ErrNotInitialized = errors.New("journal not initialized: run 'adbprune' once or check --journal path")

// ErrNoPriorState is returned when a restore is requested for a
// (package, profile) pair that has no journal record.
var ErrNoPriorState = errors.New("no prior state recorded for package")

// Journal provides SQLite-backed journal operations.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath. Call
// CreateSchema before first use. Use ":memory:" for tests.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// SQLite only allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL keeps concurrent readers cheap while sessions append.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// CreateSchema creates the journal table and indexes. Idempotent.
func (j *Journal) CreateSchema() error {
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// wrapQueryErr converts the driver's missing-table error into the
// ErrNotInitialized sentinel so callers can test with errors.Is.
func wrapQueryErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%s: %w", op, ErrNotInitialized)
	}
	return fmt.Errorf("%s: %w", op, err)
}
