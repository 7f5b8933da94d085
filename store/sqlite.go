package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/everyshare/tripbot/domain"
)

// SQLiteHistory implements History using SQLite. It is the durable store:
// a session's stream survives process restarts.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory opens the database and runs migrations.
func NewSQLiteHistory(dsn string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	h := &SQLiteHistory{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return h, nil
}

func (h *SQLiteHistory) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
	}
	for _, m := range migrations {
		if _, err := h.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Append inserts one entry at the tail of the session's stream.
func (h *SQLiteHistory) Append(ctx context.Context, sessionID string, entry Entry) error {
	if entry.MessageID == "" {
		entry.MessageID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content, kind, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.MessageID, sessionID, entry.Role, entry.Content, string(entry.Kind), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Query returns the session's entries in insertion order.
func (h *SQLiteHistory) Query(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT message_id, session_id, role, content, kind, created_at FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.MessageID, &e.SessionID, &e.Role, &e.Content, &kind, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.Kind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteKindSince removes the session's entries of the given kind created at
// or after since. A zero since removes all of them.
func (h *SQLiteHistory) DeleteKindSince(ctx context.Context, sessionID string, kind domain.Kind, since time.Time) error {
	var err error
	if since.IsZero() {
		_, err = h.db.ExecContext(ctx,
			`DELETE FROM messages WHERE session_id = ? AND kind = ?`, sessionID, string(kind))
	} else {
		_, err = h.db.ExecContext(ctx,
			`DELETE FROM messages WHERE session_id = ? AND kind = ? AND created_at >= ?`,
			sessionID, string(kind), since.UTC())
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s messages: %w", kind, err)
	}
	return nil
}

// Close closes the underlying database.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
