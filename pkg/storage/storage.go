// Package storage keeps a durable log of every notification that was
// actually delivered. It is an audit surface for the history command; the
// exactly-once machinery lives in the flat-file ledgers, not here.
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// SentNotification is one delivered event.
type SentNotification struct {
	OccurredAt time.Time
	CompID     string
	CompName   string
	Kind       string // new | registration_upcoming | registration_open | capacity
	Detail     string
}

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sent_notifications (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  comp_id     TEXT NOT NULL,
  comp_name   TEXT,
  kind        TEXT NOT NULL CHECK (kind IN ('new','registration_upcoming','registration_open','capacity')),
  detail      TEXT
);
CREATE INDEX IF NOT EXISTS idx_sent_time ON sent_notifications(occurred_at);
CREATE INDEX IF NOT EXISTS idx_sent_comp ON sent_notifications(comp_id, occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Record appends one delivered notification to the log.
func (d *DB) Record(ctx context.Context, occurredAt time.Time, compID, compName, kind, detail string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO sent_notifications(occurred_at, comp_id, comp_name, kind, detail) VALUES(?,?,?,?,?)`,
		occurredAt.UTC(), compID, compName, kind, nullIfEmpty(detail))
	return err
}

// ListRecent returns the newest notifications, most recent first.
func (d *DB) ListRecent(ctx context.Context, limit int) ([]SentNotification, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT occurred_at, comp_id, comp_name, kind, COALESCE(detail, '')
		 FROM sent_notifications ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

// ListSince returns every notification at or after the given instant,
// oldest first.
func (d *DB) ListSince(ctx context.Context, since time.Time) ([]SentNotification, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT occurred_at, comp_id, comp_name, kind, COALESCE(detail, '')
		 FROM sent_notifications WHERE occurred_at >= ? ORDER BY occurred_at ASC, id ASC`, since.UTC())
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]SentNotification, error) {
	defer rows.Close()
	var out []SentNotification
	for rows.Next() {
		var n SentNotification
		var name sql.NullString
		if err := rows.Scan(&n.OccurredAt, &n.CompID, &name, &n.Kind, &n.Detail); err != nil {
			return nil, err
		}
		n.CompName = name.String
		out = append(out, n)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
