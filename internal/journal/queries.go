package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// Record appends one journal entry. Records key uniquely on
// (package, profile, timestamp) and never require read-modify-write, so
// concurrent writers across devices are safe.
func (j *Journal) Record(rec *Record) error {
	query := `
		INSERT INTO action_records
		(serial, user_id, package, kind, outcome, retries, prev_installed, prev_enabled, prev_system, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := j.db.Exec(query,
		rec.Serial,
		rec.User,
		rec.Package,
		string(rec.Kind),
		string(rec.Outcome),
		rec.Retries,
		rec.Previous.Installed,
		rec.Previous.Enabled,
		rec.Previous.System,
		rec.Error,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to record action for %s", rec.Package), err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get record ID: %w", err)
	}
	return nil
}

const recordColumns = `id, serial, user_id, package, kind, outcome, retries, prev_installed, prev_enabled, prev_system, error, created_at`

// Lookup returns the latest record for a (package, profile) pair, or
// ErrNoPriorState when none exists. Latest means highest id: the
// autoincrement id is append order, while created_at is stored as
// RFC3339Nano text that trims trailing zeros and does not sort
// chronologically.
func (j *Journal) Lookup(serial string, user uint16, pkg string) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM action_records
		WHERE package = ? AND serial = ? AND user_id = ?
		ORDER BY id DESC
		LIMIT 1
	`
	rec, err := scanRecord(j.db.QueryRow(query, pkg, serial, user))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s on %s user %d: %w", pkg, serial, user, ErrNoPriorState)
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to look up record for %s", pkg), err)
	}
	return rec, nil
}

// LookupDebloat returns the latest successful non-restore record for a
// (package, profile) pair. Restore always targets the state captured
// before the original debloating action, not a chain of restores.
func (j *Journal) LookupDebloat(serial string, user uint16, pkg string) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM action_records
		WHERE package = ? AND serial = ? AND user_id = ?
		  AND kind != ? AND outcome = ?
		ORDER BY id DESC
		LIMIT 1
	`
	rec, err := scanRecord(j.db.QueryRow(query, pkg, serial, user, string(KindRestore), string(OutcomeSucceeded)))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s on %s user %d: %w", pkg, serial, user, ErrNoPriorState)
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to look up debloat record for %s", pkg), err)
	}
	return rec, nil
}

// List returns journal records, newest first, optionally filtered by
// package identifier. limit <= 0 means no limit.
func (j *Journal) List(pkg string, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM action_records`
	var args []any
	if pkg != "" {
		query += ` WHERE package = ?`
		args = append(args, pkg)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("failed to list records", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Count returns the total number of journal records.
func (j *Journal) Count() (int, error) {
	var count int
	err := j.db.QueryRow("SELECT COUNT(*) FROM action_records").Scan(&count)
	if err != nil {
		return 0, wrapQueryErr("failed to count records", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var kind, outcome, createdAt string

	err := row.Scan(
		&rec.ID,
		&rec.Serial,
		&rec.User,
		&rec.Package,
		&kind,
		&outcome,
		&rec.Retries,
		&rec.Previous.Installed,
		&rec.Previous.Enabled,
		&rec.Previous.System,
		&rec.Error,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = ActionKind(kind)
	rec.Outcome = Outcome(outcome)
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return &rec, nil
}
