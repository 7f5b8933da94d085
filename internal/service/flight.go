package service

import (
	"context"
	"log"
	"time"

	"github.com/everyshare/tripbot/domain"
	"github.com/everyshare/tripbot/internal/chain"
	"github.com/everyshare/tripbot/internal/session"
	"github.com/everyshare/tripbot/policy"
	"github.com/everyshare/tripbot/store"
)

// flightTurn advances the slot-filling state machine by one turn: extract,
// merge, and either ask for the next missing value or run the fare lookup
// and reset.
func (s *Service) flightTurn(ctx context.Context, res *session.Resources, inbound domain.Turn) domain.Turn {
	if res.Slots == nil {
		res.Slots = &domain.FlightSlots{Adults: 1}
		res.FlightBeganAt = time.Now().UTC()
	}

	raw, err := res.Flight.Run(ctx, inbound, slotsNote(res.Slots))
	if err != nil {
		log.Printf("WARN: flight extraction failed for %s: %v", res.SessionID, err)
		// Collected slots stay; the flow is resumable on the next turn.
		return s.fallbackTurn(res.SessionID, domain.KindFlight)
	}
	extracted := s.decoder.Decode(raw, res.SessionID)

	// The user changed subject mid-collection: answer the original turn on
	// the plain path and keep the collected slots for a later return.
	if extracted.Kind != domain.KindFlight {
		return s.plainTurn(ctx, res, inbound)
	}

	res.Slots.Merge(extracted.Slots)

	if !res.Slots.Complete() {
		slots := *res.Slots
		out := domain.Turn{
			SessionID: res.SessionID,
			Kind:      domain.KindFlight,
			Sender:    domain.SenderBot,
			Text:      extracted.Text,
			Slots:     &slots,
			Timestamp: time.Now().UTC(),
		}
		s.appendFlightExchange(ctx, res, inbound.Text, out.Text)
		return out
	}

	text := s.searchFare(ctx, res.SessionID, *res.Slots)
	res.ResetFlightState()
	return domain.Turn{
		SessionID: res.SessionID,
		Kind:      domain.KindFlight,
		Sender:    domain.SenderBot,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// searchFare performs the external lookup. Failures, timeouts, and policy
// blocks all collapse into the not-found reply; the state machine resets
// exactly as on success.
func (s *Service) searchFare(ctx context.Context, sessionID string, slots domain.FlightSlots) string {
	allowed := s.policy.Allow(ctx, policy.ToolInput{
		ToolName:  "fare.search",
		SessionID: sessionID,
		Args:      map[string]any{"adults": slots.Adults},
	})
	if !allowed {
		log.Printf("WARN: fare search blocked by policy for %s", sessionID)
		return notFoundText
	}

	toolCtx, cancel := context.WithTimeout(ctx, s.cfg.ToolTimeout)
	defer cancel()
	summary, err := s.fare.SearchLowestFare(toolCtx, slots)
	if err != nil {
		log.Printf("WARN: fare search failed for %s: %v", sessionID, err)
		return notFoundText
	}
	return summary
}

// abandonFlight is the explicit-cancel terminal transition: slots and the
// ephemeral history are dropped, and the aborted sub-dialogue's clarifying
// turns are scrubbed from durable history. Earlier completed flows keep
// their turns so the history path can still answer about them.
func (s *Service) abandonFlight(ctx context.Context, res *session.Resources) domain.Turn {
	began := res.FlightBeganAt
	res.ResetFlightState()
	if err := s.durable.DeleteKindSince(ctx, res.SessionID, domain.KindFlight, began); err != nil {
		log.Printf("WARN: flight cleanup failed for %s: %v", res.SessionID, err)
	}
	return domain.Turn{
		SessionID: res.SessionID,
		Kind:      domain.KindPlain,
		Sender:    domain.SenderBot,
		Text:      cancelledText,
		Timestamp: time.Now().UTC(),
	}
}

// plainTurn generates a direct conversational reply for the inbound turn,
// with the session's durable transcript as context.
func (s *Service) plainTurn(ctx context.Context, res *session.Resources, inbound domain.Turn) domain.Turn {
	answer, err := chain.New(s.llm, plainSystem, s.durable, res.SessionID).Run(ctx, inbound)
	if err != nil {
		log.Printf("WARN: plain generation failed for %s: %v", res.SessionID, err)
		return s.fallbackTurn(res.SessionID, domain.KindPlain)
	}
	return domain.Turn{
		SessionID: res.SessionID,
		Kind:      domain.KindPlain,
		Sender:    domain.SenderBot,
		Text:      answer,
		Timestamp: time.Now().UTC(),
	}
}

// appendFlightExchange records the clarifying exchange in the ephemeral
// flight history so the next extraction sees the sub-dialogue so far.
func (s *Service) appendFlightExchange(ctx context.Context, res *session.Resources, question, answer string) {
	if err := res.FlightHistory.Append(ctx, res.SessionID, store.Entry{
		Role:    store.RoleUser,
		Content: question,
		Kind:    domain.KindFlight,
	}); err != nil {
		log.Printf("WARN: failed to record flight exchange for %s: %v", res.SessionID, err)
		return
	}
	if err := res.FlightHistory.Append(ctx, res.SessionID, store.Entry{
		Role:    store.RoleAssistant,
		Content: answer,
		Kind:    domain.KindFlight,
	}); err != nil {
		log.Printf("WARN: failed to record flight exchange for %s: %v", res.SessionID, err)
	}
}
