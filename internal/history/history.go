// Package history is the local journal of finished sessions.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fakeyudi/intervbot/internal/engine"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("history entry not found")

// Entry is one journaled session.
type Entry struct {
	ID              string
	Kind            engine.Kind
	Title           string
	Role            string
	Difficulty      string
	Percent         int
	Correct         int
	Total           int
	Attempted       int
	DurationSeconds float64
	Reason          engine.Reason
	CreatedAt       time.Time
}

// Counts splits the journal by session kind.
type Counts struct {
	Quiz      int
	Interview int
}

// Store keeps the journal in SQLite.
type Store struct {
	db *sql.DB
}

// DefaultPath returns history.db inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "history.db")
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		role TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		percent INTEGER NOT NULL,
		correct INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL,
		attempted INTEGER NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT 'manual',
		details TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_created ON results(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Record journals a finished session. It satisfies engine.Journal.
func (s *Store) Record(ctx context.Context, res engine.Results) error {
	details, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result details: %w", err)
	}
	created := res.FinishedAt
	if created.IsZero() {
		created = time.Now()
	}

	query := `
	INSERT INTO results (id, kind, title, role, difficulty, percent, correct, total,
	                     attempted, duration_seconds, reason, details, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		res.ID, string(res.Kind), res.Title(), res.Role, string(res.Difficulty),
		res.Percent, res.Correct, res.Total, res.Attempted,
		res.Duration().Seconds(), string(res.Reason), string(details), created.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

const entryColumns = `id, kind, title, role, difficulty, percent, correct, total,
	attempted, duration_seconds, reason, created_at`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var e Entry
	var kind, reason string
	var created int64
	err := row.Scan(&e.ID, &kind, &e.Title, &e.Role, &e.Difficulty, &e.Percent,
		&e.Correct, &e.Total, &e.Attempted, &e.DurationSeconds, &reason, &created)
	if err != nil {
		return Entry{}, err
	}
	e.Kind = engine.Kind(kind)
	e.Reason = engine.Reason(reason)
	e.CreatedAt = time.UnixMilli(created)
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM results ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the full results stored for id.
func (s *Store) Get(ctx context.Context, id string) (*engine.Results, error) {
	var details sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT details FROM results WHERE id = ?`, id).Scan(&details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	var res engine.Results
	if err := json.Unmarshal([]byte(details.String), &res); err != nil {
		return nil, fmt.Errorf("parse result details: %w", err)
	}
	return &res, nil
}

// Counts returns how many quizzes and interviews are journaled.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM results GROUP BY kind`)
	if err != nil {
		return Counts{}, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return Counts{}, fmt.Errorf("scan count row: %w", err)
		}
		switch engine.Kind(kind) {
		case engine.Quiz:
			c.Quiz = n
		case engine.Interview:
			c.Interview = n
		}
	}
	return c, rows.Err()
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
