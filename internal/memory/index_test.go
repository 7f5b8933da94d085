package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/everyshare/tripbot/internal/adapter/llm"
	"github.com/everyshare/tripbot/store"
)

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors should score 1, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors should score 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %f", got)
	}
}

func TestIndexSearchRanksExactMatchFirst(t *testing.T) {
	ctx := context.Background()
	index := NewIndex(llm.MockEmbedder{})

	entries := []store.Entry{
		{Role: store.RoleUser, Content: "대만행 항공권을 9월 11일에 찾아줬던 내역이 있어요"},
		{Role: store.RoleAssistant, Content: "코펜하겐 뉘하운 사진에 대한 설명을 드렸습니다 유명한 항구입니다"},
		{Role: store.RoleUser, Content: "짧음"}, // below the length floor, dropped
	}

	got, err := index.Search(ctx, "s1", "대만행 항공권을 9월 11일에 찾아줬던 내역이 있어요", entries)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 indexed entries, got %d: %q", len(lines), got)
	}
	// Ranking keys on the bare content; the role prefix is display only.
	if lines[0] != "user: 대만행 항공권을 9월 11일에 찾아줬던 내역이 있어요" {
		t.Fatalf("exact match should rank first: %q", got)
	}
}

func TestIndexSearchEmptyHistory(t *testing.T) {
	index := NewIndex(llm.MockEmbedder{})
	got, err := index.Search(context.Background(), "s1", "질문", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestIndexRebuildAfterShrink(t *testing.T) {
	ctx := context.Background()
	index := NewIndex(llm.MockEmbedder{})

	long := func(s string) store.Entry {
		return store.Entry{Role: store.RoleUser, Content: s + strings.Repeat(" 추가 내용", 5)}
	}
	entries := []store.Entry{long("첫번째 메시지"), long("두번째 메시지")}
	if _, err := index.Search(ctx, "s1", "첫번째", entries); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// Simulate flight-flow cleanup removing entries from durable history.
	shrunk := entries[:1]
	got, err := index.Search(ctx, "s1", "첫번째", shrunk)
	if err != nil {
		t.Fatalf("Search after shrink failed: %v", err)
	}
	if strings.Contains(got, "두번째") {
		t.Fatalf("stale entry survived rebuild: %q", got)
	}
}
