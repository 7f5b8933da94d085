package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/everyshare/tripbot/domain"
)

// MemoryHistory implements History in process memory. It backs the ephemeral
// flight sub-history: non-persisted, cleared when the sub-dialogue completes
// or is abandoned.
type MemoryHistory struct {
	mu      sync.RWMutex
	streams map[string][]Entry
}

// NewMemoryHistory creates an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{streams: make(map[string][]Entry)}
}

func (h *MemoryHistory) Append(_ context.Context, sessionID string, entry Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if entry.MessageID == "" {
		entry.MessageID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.SessionID = sessionID
	h.streams[sessionID] = append(h.streams[sessionID], entry)
	return nil
}

func (h *MemoryHistory) Query(_ context.Context, sessionID string) ([]Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stream := h.streams[sessionID]
	out := make([]Entry, len(stream))
	copy(out, stream)
	return out, nil
}

func (h *MemoryHistory) DeleteKindSince(_ context.Context, sessionID string, kind domain.Kind, since time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	stream := h.streams[sessionID]
	kept := stream[:0]
	for _, e := range stream {
		if e.Kind != kind || (!since.IsZero() && e.CreatedAt.Before(since)) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(h.streams, sessionID)
		return nil
	}
	h.streams[sessionID] = kept
	return nil
}

// Clear drops the session's entire ephemeral stream.
func (h *MemoryHistory) Clear(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.streams, sessionID)
}

func (h *MemoryHistory) Close() error { return nil }
