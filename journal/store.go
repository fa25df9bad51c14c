// Package journal persists scroll sessions and the milestones reached in them.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	ended_at        TEXT,
	signed_meters   REAL NOT NULL DEFAULT 0,
	absolute_meters REAL NOT NULL DEFAULT 0,
	steps           REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS milestones (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	meters      REAL NOT NULL,
	reached_at  TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS milestones_session ON milestones(session_id);
`

// Summary is the distance a session covered.
type Summary struct {
	SignedMeters   float64
	AbsoluteMeters float64
	Steps          float64
}

// Session is a stored session row.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time // zero while the session is open
	Summary
}

// Milestone is a stored milestone row.
type Milestone struct {
	SessionID string
	Meters    float64
	ReachedAt time.Time
}

// Store manages the journal in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// BeginSession inserts an open session.
func (s *Store) BeginSession(id string, startedAt time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		id, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecordMilestone stores a milestone reached in session id.
func (s *Store) RecordMilestone(id string, meters float64, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO milestones (session_id, meters, reached_at) VALUES (?, ?, ?)`,
		id, meters, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

// EndSession closes session id with its final summary.
func (s *Store) EndSession(id string, endedAt time.Time, sum Summary) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ?, signed_meters = ?, absolute_meters = ?, steps = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano), sum.SignedMeters, sum.AbsoluteMeters, sum.Steps, id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// Sessions returns up to limit sessions, newest first. limit <= 0 returns all.
func (s *Store) Sessions(limit int) ([]Session, error) {
	q := `SELECT id, started_at, ended_at, signed_meters, absolute_meters, steps
	      FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess    Session
			started string
			ended   sql.NullString
		)
		if err := rows.Scan(&sess.ID, &started, &ended, &sess.SignedMeters, &sess.AbsoluteMeters, &sess.Steps); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if ended.Valid {
			if sess.EndedAt, err = time.Parse(time.RFC3339Nano, ended.String); err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Milestones returns the milestones of session id in the order they were reached.
func (s *Store) Milestones(id string) ([]Milestone, error) {
	rows, err := s.db.Query(
		`SELECT session_id, meters, reached_at FROM milestones WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		var (
			m       Milestone
			reached string
		)
		if err := rows.Scan(&m.SessionID, &m.Meters, &reached); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		if m.ReachedAt, err = time.Parse(time.RFC3339Nano, reached); err != nil {
			return nil, fmt.Errorf("parse reached_at: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Totals returns the number of closed sessions and their summed absolute meters.
func (s *Store) Totals() (int64, float64, error) {
	var (
		n     int64
		total sql.NullFloat64
	)
	err := s.db.QueryRow(
		`SELECT COUNT(*), SUM(absolute_meters) FROM sessions WHERE ended_at IS NOT NULL`,
	).Scan(&n, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("query totals: %w", err)
	}
	return n, total.Float64, nil
}
