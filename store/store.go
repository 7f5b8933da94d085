// Package store defines the conversation history interface and implementations.
package store

import (
	"context"
	"time"

	"github.com/everyshare/tripbot/domain"
)

// Entry is one persisted line of a session's conversation history.
type Entry struct {
	MessageID string      `json:"message_id"`
	SessionID string      `json:"session_id"`
	Role      string      `json:"role"` // user, assistant
	Content   string      `json:"content"`
	Kind      domain.Kind `json:"kind,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// History stores one ordered, append-only stream of entries per session.
// Callers serialize appends per session; the store preserves insertion order.
type History interface {
	Append(ctx context.Context, sessionID string, entry Entry) error
	Query(ctx context.Context, sessionID string) ([]Entry, error)
	// DeleteKindSince removes the session's entries tagged with the given
	// kind and created at or after since. Used to scrub an abandoned flight
	// sub-dialogue without touching earlier completed flows. A zero since
	// removes every entry of the kind.
	DeleteKindSince(ctx context.Context, sessionID string, kind domain.Kind, since time.Time) error
	Close() error
}
