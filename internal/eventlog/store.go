// Package eventlog persists mission events (commands, transitions,
// detections, faults) to a local SQLite file for the dashboard and
// post-run inspection.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Event is one persisted mission occurrence.
type Event struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Meta       any       `json:"meta,omitempty"`
}

// Store is a SQLite-backed append-only event log.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS mission_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
CREATE INDEX IF NOT EXISTS idx_mission_events_time ON mission_events (occurred_at);
`

// Open opens or creates the event log database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Single writer; SQLite handles that best with one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", strings.TrimSpace(pragma), err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Append inserts one event, filling ID and OccurredAt when unset.
func (s *Store) Append(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var metaPtr *string
	if e.Meta != nil {
		if b, err := json.Marshal(e.Meta); err == nil {
			str := string(b)
			metaPtr = &str
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mission_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`,
		e.ID,
		e.OccurredAt.Format("2006-01-02 15:04:05"),
		e.Type,
		e.Message,
		metaPtr,
	)
	return err
}

// List returns events within [from, to] (zero values mean unbounded)
// optionally filtered by type, ordered oldest first.
func (s *Store) List(ctx context.Context, from, to time.Time, typ string) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format("2006-01-02 15:04:05"))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format("2006-01-02 15:04:05"))
	}
	if typ = strings.TrimSpace(typ); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := `SELECT id, occurred_at, type, message, meta FROM mission_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0, 64)
	for rows.Next() {
		var (
			ev      Event
			when    string
			metaStr sql.NullString
		)
		if err := rows.Scan(&ev.ID, &when, &ev.Type, &ev.Message, &metaStr); err != nil {
			return nil, err
		}
		if ts, perr := time.Parse("2006-01-02 15:04:05", when); perr == nil {
			ev.OccurredAt = ts.UTC()
		}
		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Meta = v
			} else {
				ev.Meta = metaStr.String
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
