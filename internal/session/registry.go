// Package session owns the per-session dialogue resources.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/everyshare/tripbot/domain"
	"github.com/everyshare/tripbot/internal/chain"
	"github.com/everyshare/tripbot/store"
)

// Resources is the live state bound to one session id: both chains, the
// ephemeral flight sub-history, and the slots collected so far. The embedded
// mutex serializes turn processing and eviction for the session; sessions
// never share it.
type Resources struct {
	mu sync.Mutex

	SessionID     string
	Classify      *chain.Chain
	Flight        *chain.Chain
	FlightHistory *store.MemoryHistory
	Slots         *domain.FlightSlots
	// FlightBeganAt marks when the current slot collection started, so an
	// abandon can scrub only this sub-dialogue's durable turns.
	FlightBeganAt time.Time
}

// Lock serializes turn processing for this session.
func (r *Resources) Lock() { r.mu.Lock() }

// Unlock releases the session.
func (r *Resources) Unlock() { r.mu.Unlock() }

// ResetFlightState drops the collected slots and the ephemeral flight
// history. Caller must hold the session lock.
func (r *Resources) ResetFlightState() {
	r.Slots = nil
	r.FlightBeganAt = time.Time{}
	if r.FlightHistory != nil {
		r.FlightHistory.Clear(r.SessionID)
	}
}

// BuildFunc constructs the resources for a new session id.
type BuildFunc func(sessionID string) *Resources

// Registry maps session ids to their resources. It is the only structure
// mutated by multiple sessions concurrently; entries themselves are
// serialized by their own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Resources
	build    BuildFunc
}

// NewRegistry creates a registry that builds resources on demand.
func NewRegistry(build BuildFunc) *Registry {
	return &Registry{sessions: make(map[string]*Resources), build: build}
}

// Get returns the session's resources, creating them on first use. Repeated
// calls for the same id return the same instance.
func (g *Registry) Get(sessionID string) *Resources {
	g.mu.RLock()
	res, ok := g.sessions[sessionID]
	g.mu.RUnlock()
	if ok {
		return res
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if res, ok := g.sessions[sessionID]; ok {
		return res
	}
	res = g.build(sessionID)
	g.sessions[sessionID] = res
	return res
}

// EvictFlightState clears the session's in-progress flight sub-dialogue
// without dropping the session itself.
func (g *Registry) EvictFlightState(sessionID string) {
	g.mu.RLock()
	res, ok := g.sessions[sessionID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	res.Lock()
	res.ResetFlightState()
	res.Unlock()
}

// Drop removes the session's resources, e.g. on disconnect or idle timeout.
// The entry is unlinked first, then the per-session lock is taken, so an
// in-flight turn finishes against its own resources and a later turn builds
// fresh ones.
func (g *Registry) Drop(sessionID string) {
	g.mu.Lock()
	res, ok := g.sessions[sessionID]
	delete(g.sessions, sessionID)
	g.mu.Unlock()
	if !ok {
		return
	}
	res.Lock()
	res.ResetFlightState()
	res.Unlock()
	log.Printf("session dropped: %s", sessionID)
}

// Len reports the number of live sessions.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}
