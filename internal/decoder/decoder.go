// Package decoder turns raw model output into a typed turn record.
package decoder

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/everyshare/tripbot/domain"
)

// MediaStore persists an inline image payload and returns a stable ref.
type MediaStore interface {
	Save(imageB64 string) (string, error)
}

// Decoder parses the model's JSON-ish output. It never fails: malformed
// output degrades to a plain-text echo of the raw completion.
type Decoder struct {
	media MediaStore
}

// New creates a decoder. media may be nil when image persistence is not
// wired (tests).
func New(media MediaStore) *Decoder {
	return &Decoder{media: media}
}

// Decode extracts the first {...} object from raw and maps it onto a Turn.
// Unknown fields are dropped, missing fields default. On any parse failure
// the raw text comes back verbatim as a plain bot turn.
func (d *Decoder) Decode(raw, sessionID string) domain.Turn {
	fallback := domain.Turn{
		SessionID: sessionID,
		Kind:      domain.KindPlain,
		Sender:    domain.SenderBot,
		Text:      raw,
		Timestamp: time.Now().UTC(),
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fallback
	}

	var turn domain.Turn
	if err := json.Unmarshal([]byte(raw[start:end+1]), &turn); err != nil {
		log.Printf("WARN: failed to decode model output: %v", err)
		return fallback
	}

	turn.SessionID = sessionID
	if turn.Kind == "" {
		turn.Kind = domain.KindPlain
	}
	if turn.Sender == "" {
		turn.Sender = domain.SenderBot
	}
	turn.Timestamp = time.Now().UTC()

	if turn.Image != "" && d.media != nil {
		ref, err := d.media.Save(turn.Image)
		if err != nil {
			log.Printf("WARN: failed to persist decoded image: %v", err)
			turn.Image = ""
		} else {
			turn.Image = ref
		}
	}
	return turn
}
