// Package service implements the session-scoped dialogue orchestrator.
package service

import (
	"context"

	"github.com/everyshare/tripbot/config"
	"github.com/everyshare/tripbot/internal/adapter/fare"
	"github.com/everyshare/tripbot/internal/adapter/llm"
	"github.com/everyshare/tripbot/internal/adapter/vision"
	"github.com/everyshare/tripbot/internal/chain"
	"github.com/everyshare/tripbot/internal/decoder"
	"github.com/everyshare/tripbot/internal/session"
	"github.com/everyshare/tripbot/policy"
	"github.com/everyshare/tripbot/store"
)

// MemorySearcher retrieves earlier conversation semantically. Implemented by
// memory.Index.
type MemorySearcher interface {
	Search(ctx context.Context, sessionID, query string, entries []store.Entry) (string, error)
	Drop(sessionID string)
}

// Service routes each inbound turn through classification into the matching
// sub-dialogue, carrying per-session state across turns.
type Service struct {
	cfg      *config.Config
	llm      llm.Client
	durable  store.History
	decoder  *decoder.Decoder
	fare     fare.Searcher
	vision   vision.Annotator
	memory   MemorySearcher
	policy   *policy.Engine
	registry *session.Registry
}

// New wires the orchestrator. The registry builds both chains per session:
// the classify chain bound to the session's durable history, the flight
// chain to a fresh ephemeral flight history.
func New(cfg *config.Config, llmClient llm.Client, durable store.History, dec *decoder.Decoder,
	fareClient fare.Searcher, visionClient vision.Annotator, mem MemorySearcher, policyEngine *policy.Engine) *Service {

	s := &Service{
		cfg:     cfg,
		llm:     llmClient,
		durable: durable,
		decoder: dec,
		fare:    fareClient,
		vision:  visionClient,
		memory:  mem,
		policy:  policyEngine,
	}
	s.registry = session.NewRegistry(func(sessionID string) *session.Resources {
		flightHistory := store.NewMemoryHistory()
		return &session.Resources{
			SessionID:     sessionID,
			Classify:      chain.New(llmClient, classifySystem, durable, sessionID),
			Flight:        chain.New(llmClient, flightSystem, flightHistory, sessionID),
			FlightHistory: flightHistory,
		}
	})
	return s
}

// Registry exposes the session registry for transport-level lifecycle hooks
// (disconnect, idle timeout).
func (s *Service) Registry() *session.Registry {
	return s.registry
}

// EndSession releases everything held for a session: chains, slot state, and
// the in-memory semantic index. Called when the session's last connection
// goes away. Durable history is kept.
func (s *Service) EndSession(sessionID string) {
	s.registry.Drop(sessionID)
	s.memory.Drop(sessionID)
}
