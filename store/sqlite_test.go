package store

import (
	"context"
	"testing"
	"time"

	"github.com/everyshare/tripbot/domain"
)

func newTestHistory(t *testing.T) *SQLiteHistory {
	t.Helper()
	h, err := NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to create history: %v", err)
	}
	return h
}

func TestSQLiteHistoryAppendOrder(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)
	defer h.Close()

	turns := []Entry{
		{Role: RoleUser, Content: "안녕", Kind: domain.KindPlain},
		{Role: RoleAssistant, Content: "안녕하세요", Kind: domain.KindPlain},
		{Role: RoleUser, Content: "항공권 찾아줘", Kind: domain.KindFlight},
	}
	for _, e := range turns {
		if err := h.Append(ctx, "s1", e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := h.Query(ctx, "s1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Content != turns[i].Content {
			t.Fatalf("entry %d out of order: %+v", i, e)
		}
		if e.MessageID == "" || e.CreatedAt.IsZero() {
			t.Fatalf("entry %d missing generated fields: %+v", i, e)
		}
	}
}

func TestSQLiteHistorySessionIsolation(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)
	defer h.Close()

	if err := h.Append(ctx, "s1", Entry{Role: RoleUser, Content: "a"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "s2", Entry{Role: RoleUser, Content: "b"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := h.Query(ctx, "s2")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Content != "b" {
		t.Fatalf("unexpected entries for s2: %+v", got)
	}
}

func TestSQLiteHistoryDeleteKindSince(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)
	defer h.Close()

	old := time.Now().UTC().Add(-time.Hour)
	entries := []Entry{
		{Role: RoleUser, Content: "안녕", Kind: domain.KindPlain},
		{Role: RoleAssistant, Content: "최저가 항공편 136,700원", Kind: domain.KindFlight, CreatedAt: old},
		{Role: RoleUser, Content: "항공권", Kind: domain.KindFlight},
		{Role: RoleAssistant, Content: "출발일을 알려주세요", Kind: domain.KindFlight},
	}
	for _, e := range entries {
		if err := h.Append(ctx, "s1", e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Only flight entries from the current collection go; the hour-old
	// summary stays.
	if err := h.DeleteKindSince(ctx, "s1", domain.KindFlight, time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("DeleteKindSince failed: %v", err)
	}
	got, err := h.Query(ctx, "s1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected entries after delete: %+v", got)
	}
	if got[1].Content != "최저가 항공편 136,700원" {
		t.Fatalf("old flight summary must survive: %+v", got)
	}

	// Zero since removes every entry of the kind.
	if err := h.DeleteKindSince(ctx, "s1", domain.KindFlight, time.Time{}); err != nil {
		t.Fatalf("DeleteKindSince failed: %v", err)
	}
	got, err = h.Query(ctx, "s1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Kind != domain.KindPlain {
		t.Fatalf("unexpected entries after full delete: %+v", got)
	}
}
