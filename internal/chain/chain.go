// Package chain binds a system prompt, an LLM client, and a history handle
// into a per-session pipeline.
package chain

import (
	"context"
	"strings"

	"github.com/everyshare/tripbot/domain"
	"github.com/everyshare/tripbot/internal/adapter/llm"
	"github.com/everyshare/tripbot/store"
)

// Chain renders the bound history as a transcript, embeds it in the system
// message, and completes the inbound turn against it.
type Chain struct {
	client    llm.Client
	system    string
	history   store.History
	sessionID string
}

// New binds a chain to one session's history.
func New(client llm.Client, system string, history store.History, sessionID string) *Chain {
	return &Chain{client: client, system: system, history: history, sessionID: sessionID}
}

// Run completes the turn. notes are appended to the system message as extra
// context blocks (collected slots, retrieved memory).
func (c *Chain) Run(ctx context.Context, turn domain.Turn, notes ...string) (string, error) {
	entries, err := c.history.Query(ctx, c.sessionID)
	if err != nil {
		return "", err
	}

	// Embed the transcript in the single system message to avoid role
	// ambiguity across providers.
	var b strings.Builder
	b.WriteString(c.system)
	if len(entries) > 0 {
		b.WriteString("\n\nTranscript (role: content):\n")
		for _, e := range entries {
			content := strings.TrimSpace(e.Content)
			content = strings.ReplaceAll(content, "\n\n", "\n")
			b.WriteString(e.Role)
			b.WriteString(": ")
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	for _, note := range notes {
		if note == "" {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(note)
	}

	msg := llm.Message{Role: llm.RoleUser, Text: turn.Text}
	if turn.Image != "" {
		msg.ImageB64 = turn.Image
	}
	return c.client.Complete(ctx, b.String(), []llm.Message{msg})
}
