// Package llm provides an abstraction for the language generation service.
package llm

import "context"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt message. ImageB64 attaches an inline image to a user
// message; it is sent as a multi-part data URL.
type Message struct {
	Role     string
	Text     string
	ImageB64 string
}

// Client is the single point where model inference is invoked. The system
// prompt selects the mode: classify/act (structured Turn output) or plain
// generation.
type Client interface {
	Complete(ctx context.Context, system string, msgs []Message) (string, error)
}

// Embedder turns texts into vectors for the semantic memory index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
