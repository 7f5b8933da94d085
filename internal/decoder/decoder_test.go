package decoder

import (
	"fmt"
	"testing"

	"github.com/everyshare/tripbot/domain"
)

type fakeMedia struct {
	saved []string
	err   error
}

func (f *fakeMedia) Save(imageB64 string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, imageB64)
	return fmt.Sprintf("data/media/%d.jpg", len(f.saved)), nil
}

func TestDecodeStructuredOutput(t *testing.T) {
	d := New(nil)
	raw := `Sure, here is the result:
{"kind": "flight", "sender": "bot", "text": "출발일을 알려주세요", "slots": {"origin": "인천", "origin_code": "ICN"}, "unknown_field": 1}
Let me know if you need anything else.`

	turn := d.Decode(raw, "s1")
	if turn.Kind != domain.KindFlight || turn.Sender != domain.SenderBot {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if turn.SessionID != "s1" {
		t.Fatalf("session id not stamped: %+v", turn)
	}
	if turn.Slots == nil || turn.Slots.Origin != "인천" || turn.Slots.OriginCode != "ICN" {
		t.Fatalf("slots not decoded: %+v", turn.Slots)
	}
	if turn.Timestamp.IsZero() {
		t.Fatalf("timestamp not assigned")
	}
}

func TestDecodeFallbackVerbatim(t *testing.T) {
	d := New(nil)
	for _, raw := range []string{
		"그냥 일반 답변입니다",
		"no braces here at all",
		"{broken json",
		`{"kind": [1,2,3]}`, // valid json, wrong shape
	} {
		turn := d.Decode(raw, "s1")
		if turn.Kind != domain.KindPlain || turn.Sender != domain.SenderBot {
			t.Fatalf("fallback turn wrong for %q: %+v", raw, turn)
		}
		if turn.Text != raw {
			t.Fatalf("fallback must echo input verbatim, got %q for %q", turn.Text, raw)
		}
	}
}

func TestDecodeDefaults(t *testing.T) {
	d := New(nil)
	turn := d.Decode(`{"text": "안녕하세요"}`, "s1")
	if turn.Kind != domain.KindPlain || turn.Sender != domain.SenderBot {
		t.Fatalf("missing fields should default: %+v", turn)
	}
}

func TestDecodePersistsImage(t *testing.T) {
	media := &fakeMedia{}
	d := New(media)
	turn := d.Decode(`{"kind": "search", "image": "aGVsbG8="}`, "s1")
	if turn.Image != "data/media/1.jpg" {
		t.Fatalf("image not replaced with ref: %+v", turn)
	}
	if len(media.saved) != 1 || media.saved[0] != "aGVsbG8=" {
		t.Fatalf("image not handed to media store: %+v", media.saved)
	}
}

func TestDecodeImagePersistFailureClearsField(t *testing.T) {
	d := New(&fakeMedia{err: fmt.Errorf("disk full")})
	turn := d.Decode(`{"kind": "search", "image": "aGVsbG8="}`, "s1")
	if turn.Image != "" {
		t.Fatalf("image should be cleared on persist failure: %+v", turn)
	}
	if turn.Kind != domain.KindSearch {
		t.Fatalf("decode should still succeed: %+v", turn)
	}
}
