// Package history keeps a local record of push outcomes in an embedded
// SQLite database. The record is append-only and best-effort: a failure to
// write history never fails the push that produced it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded file outcome.
type Entry struct {
	File     string
	PoolID   string
	Status   string
	Records  int
	Inserted int
	Chunks   int
	Error    string
	At       time.Time
}

// Store persists entries to a SQLite file.
type Store struct {
	db *sql.DB
}

const createStmt = `
CREATE TABLE IF NOT EXISTS push_history (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	file      TEXT NOT NULL,
	pool_id   TEXT NOT NULL,
	status    TEXT NOT NULL,
	records   INTEGER NOT NULL,
	inserted  INTEGER NOT NULL,
	chunks    INTEGER NOT NULL,
	error     TEXT NOT NULL DEFAULT '',
	at        TEXT NOT NULL
);`

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(createStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one entry. A zero At is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_history (file, pool_id, status, records, inserted, chunks, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.File, e.PoolID, e.Status, e.Records, e.Inserted, e.Chunks, e.Error,
		at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT file, pool_id, status, records, inserted, chunks, error, at
		 FROM push_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.File, &e.PoolID, &e.Status, &e.Records, &e.Inserted, &e.Chunks, &e.Error, &at); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, at); perr == nil {
			e.At = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
