// Package domain defines the core domain models for the dialogue orchestrator.
package domain

import "time"

// Kind classifies the sub-dialogue a turn belongs to.
type Kind string

const (
	// KindPlain is a direct conversational reply.
	KindPlain Kind = "plain"
	// KindFlight is a turn in the flight slot-filling flow.
	KindFlight Kind = "flight"
	// KindSearch is a visual-search turn carrying an image.
	KindSearch Kind = "search"
	// KindHistory is a question about earlier conversation.
	KindHistory Kind = "history"
)

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser Sender = "user"
	// SenderInternal marks a synthetic loop-back turn generated by the
	// orchestrator itself. Internal turns are never persisted.
	SenderInternal Sender = "assistant-internal"
	SenderBot      Sender = "bot"
)

// Turn is one message exchanged in either direction.
type Turn struct {
	SessionID        string       `json:"session_id"`
	Kind             Kind         `json:"kind,omitempty"`
	Text             string       `json:"text,omitempty"`
	Image            string       `json:"image,omitempty"` // base64 payload or media ref
	Sender           Sender       `json:"sender,omitempty"`
	Slots            *FlightSlots `json:"slots,omitempty"`
	RetrievedContext string       `json:"retrieved_context,omitempty"`
	Timestamp        time.Time    `json:"timestamp,omitzero"`
}

// Internal reports whether the turn is a synthetic loop-back turn.
func (t Turn) Internal() bool {
	return t.Sender == SenderInternal
}
