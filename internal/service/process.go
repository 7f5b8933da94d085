package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/everyshare/tripbot/domain"
	"github.com/everyshare/tripbot/internal/adapter/llm"
	"github.com/everyshare/tripbot/internal/session"
	"github.com/everyshare/tripbot/policy"
	"github.com/everyshare/tripbot/store"
)

// maxPasses caps the classification trampoline: the original pass plus one
// synthetic re-entry for the visual-search flow. A classifier that keeps
// producing search turns falls out into an error reply instead of looping.
const maxPasses = 2

// Process routes one inbound turn and returns the user-visible reply. The
// session's turns are serialized on its own lock; different sessions run
// fully concurrently.
func (s *Service) Process(ctx context.Context, turn domain.Turn) (domain.Turn, error) {
	if turn.SessionID == "" {
		return domain.Turn{}, fmt.Errorf("turn has no session id")
	}

	res := s.registry.Get(turn.SessionID)
	res.Lock()
	defer res.Unlock()

	out := s.route(ctx, res, turn)

	// Synthetic intermediates are never persisted; only the user's original
	// question and the final answer are, in that order.
	if !out.Internal() {
		s.persistExchange(ctx, turn, out)
	}
	return out, nil
}

// route is the per-turn state machine: classify, dispatch, and loop back at
// most once for the visual-search flow.
func (s *Service) route(ctx context.Context, res *session.Resources, inbound domain.Turn) domain.Turn {
	cur := inbound
	for pass := 0; pass < maxPasses; pass++ {
		if pass == 0 && res.Slots.State() == domain.SlotStateCollecting && isCancelCommand(cur.Text) {
			return s.abandonFlight(ctx, res)
		}

		raw, err := res.Classify.Run(ctx, cur)
		if err != nil {
			log.Printf("WARN: classification failed for %s: %v", res.SessionID, err)
			return s.fallbackTurn(res.SessionID, domain.KindPlain)
		}
		classified := s.decoder.Decode(raw, res.SessionID)

		switch classified.Kind {
		case domain.KindFlight:
			return s.flightTurn(ctx, res, cur)

		case domain.KindSearch:
			// The annotation pass strips the image from the synthetic turn,
			// so an imageless search here means either nothing to annotate
			// or a classifier stuck on search after annotation.
			if cur.Image == "" {
				return s.fallbackTurn(res.SessionID, domain.KindSearch)
			}
			synthetic, ok := s.annotateToSynthetic(ctx, res, cur)
			if !ok {
				return s.fallbackTurn(res.SessionID, domain.KindSearch)
			}
			cur = synthetic
			continue

		case domain.KindHistory:
			return s.historyTurn(ctx, res, cur, classified)

		default:
			return classified
		}
	}

	log.Printf("WARN: classification loop exceeded %d passes for %s", maxPasses, res.SessionID)
	return s.fallbackTurn(res.SessionID, domain.KindPlain)
}

// annotateToSynthetic runs the image-annotation lookup and wraps the report
// into an assistant-internal turn for the next trampoline pass.
func (s *Service) annotateToSynthetic(ctx context.Context, res *session.Resources, cur domain.Turn) (domain.Turn, bool) {
	allowed := s.policy.Allow(ctx, policy.ToolInput{
		ToolName:  "vision.annotate",
		SessionID: res.SessionID,
		Args:      map[string]any{"image_bytes": len(cur.Image) * 3 / 4},
	})
	if !allowed {
		log.Printf("WARN: annotation blocked by policy for %s", res.SessionID)
		return domain.Turn{}, false
	}

	toolCtx, cancel := context.WithTimeout(ctx, s.cfg.ToolTimeout)
	defer cancel()
	report, err := s.vision.Annotate(toolCtx, cur.Image)
	if err != nil {
		log.Printf("WARN: annotation failed for %s: %v", res.SessionID, err)
		return domain.Turn{}, false
	}

	return domain.Turn{
		SessionID: res.SessionID,
		Sender:    domain.SenderInternal,
		Text:      searchInstruction(report),
		Timestamp: time.Now().UTC(),
	}, true
}

// historyTurn answers a question about earlier conversation: retrieve, then
// one direct plain-generation call. No recursive classification is needed
// once the context is attached.
func (s *Service) historyTurn(ctx context.Context, res *session.Resources, inbound, classified domain.Turn) domain.Turn {
	retrieved := classified.RetrievedContext
	if retrieved == "" {
		entries, err := s.durable.Query(ctx, res.SessionID)
		if err != nil {
			log.Printf("WARN: history query failed for %s: %v", res.SessionID, err)
			return s.fallbackTurn(res.SessionID, domain.KindHistory)
		}
		toolCtx, cancel := context.WithTimeout(ctx, s.cfg.ToolTimeout)
		retrieved, err = s.memory.Search(toolCtx, res.SessionID, inbound.Text, entries)
		cancel()
		if err != nil {
			log.Printf("WARN: memory search failed for %s: %v", res.SessionID, err)
			return s.fallbackTurn(res.SessionID, domain.KindHistory)
		}
	}

	answer, err := s.generate(ctx, historySystem+"\n\n"+retrievedNote(retrieved), inbound.Text)
	if err != nil {
		log.Printf("WARN: history answer failed for %s: %v", res.SessionID, err)
		return s.fallbackTurn(res.SessionID, domain.KindHistory)
	}
	return domain.Turn{
		SessionID:        res.SessionID,
		Kind:             domain.KindHistory,
		Sender:           domain.SenderBot,
		Text:             answer,
		RetrievedContext: retrieved,
		Timestamp:        time.Now().UTC(),
	}
}

// fallbackTurn is the single formatting point for every tool failure: the
// user always receives a well-formed turn.
func (s *Service) fallbackTurn(sessionID string, kind domain.Kind) domain.Turn {
	return domain.Turn{
		SessionID: sessionID,
		Kind:      kind,
		Sender:    domain.SenderBot,
		Text:      notFoundText,
		Timestamp: time.Now().UTC(),
	}
}

// generate performs a plain-generation model call (no structured output).
func (s *Service) generate(ctx context.Context, system, text string) (string, error) {
	llmCtx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()
	return s.llm.Complete(llmCtx, system, []llm.Message{{Role: llm.RoleUser, Text: text}})
}

// persistExchange appends the inbound user turn and the final reply to the
// durable stream, in that order, under the session lock.
func (s *Service) persistExchange(ctx context.Context, inbound, out domain.Turn) {
	content := inbound.Text
	if content == "" && inbound.Image != "" {
		content = "[image]"
	}
	if err := s.durable.Append(ctx, inbound.SessionID, store.Entry{
		Role:    store.RoleUser,
		Content: content,
		Kind:    out.Kind,
	}); err != nil {
		log.Printf("WARN: failed to persist user turn for %s: %v", inbound.SessionID, err)
		return
	}
	if err := s.durable.Append(ctx, inbound.SessionID, store.Entry{
		Role:    store.RoleAssistant,
		Content: out.Text,
		Kind:    out.Kind,
	}); err != nil {
		log.Printf("WARN: failed to persist reply for %s: %v", inbound.SessionID, err)
	}
}
