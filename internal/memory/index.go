// Package memory provides a per-session semantic index over conversation
// history, backed by embeddings and cosine similarity.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/everyshare/tripbot/internal/adapter/llm"
	"github.com/everyshare/tripbot/store"
)

const (
	// Entries shorter than this carry too little signal to retrieve.
	minEntryLen = 20
	topK        = 5
)

// Index embeds history entries lazily and answers similarity queries.
// Indexed vectors are process-local; the durable history remains the source
// of truth and the index re-syncs from it on every query.
type Index struct {
	embedder llm.Embedder

	mu       sync.Mutex
	sessions map[string]*sessionIndex
}

type sessionIndex struct {
	texts   []string
	vectors [][]float32
}

// NewIndex creates an empty index.
func NewIndex(embedder llm.Embedder) *Index {
	return &Index{embedder: embedder, sessions: make(map[string]*sessionIndex)}
}

// Search syncs the session's index from the given history entries, then
// returns the texts most similar to the query, best first, joined by
// newlines. An empty result is not an error.
func (i *Index) Search(ctx context.Context, sessionID, query string, entries []store.Entry) (string, error) {
	texts, contents := indexableEntries(entries)
	if err := i.sync(ctx, sessionID, texts, contents); err != nil {
		return "", err
	}

	queryVecs, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	idx := i.sessions[sessionID]
	if idx == nil || len(idx.texts) == 0 {
		return "", nil
	}

	type scored struct {
		text  string
		score float32
	}
	results := make([]scored, 0, len(idx.texts))
	for j, vec := range idx.vectors {
		results = append(results, scored{text: idx.texts[j], score: CosineSimilarity(queryVecs[0], vec)})
	}
	sort.Slice(results, func(a, b int) bool { return results[a].score > results[b].score })

	limit := topK
	if limit > len(results) {
		limit = len(results)
	}
	picked := make([]string, 0, limit)
	for _, r := range results[:limit] {
		picked = append(picked, r.text)
	}
	return strings.Join(picked, "\n"), nil
}

// Drop discards a session's vectors.
func (i *Index) Drop(sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.sessions, sessionID)
}

// sync embeds only the entries appended since the last query. Vectors come
// from the raw contents so they live in the same space as queries; texts are
// the rendered form handed back to the caller.
func (i *Index) sync(ctx context.Context, sessionID string, texts, contents []string) error {
	i.mu.Lock()
	idx := i.sessions[sessionID]
	if idx == nil {
		idx = &sessionIndex{}
		i.sessions[sessionID] = idx
	}
	known := len(idx.texts)
	if known > len(texts) {
		// History shrank (flight-flow cleanup); rebuild from scratch.
		idx.texts = nil
		idx.vectors = nil
		known = 0
	}
	fresh := contents[known:]
	freshTexts := texts[known:]
	i.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	vectors, err := i.embedder.Embed(ctx, fresh)
	if err != nil {
		return fmt.Errorf("failed to embed history: %w", err)
	}

	i.mu.Lock()
	idx.texts = append(idx.texts, freshTexts...)
	idx.vectors = append(idx.vectors, vectors...)
	i.mu.Unlock()
	return nil
}

// indexableEntries filters short entries and splits each survivor into its
// display text (role-prefixed) and the bare content that gets embedded.
func indexableEntries(entries []store.Entry) (texts, contents []string) {
	for _, e := range entries {
		if utf8.RuneCountInString(e.Content) >= minEntryLen {
			texts = append(texts, fmt.Sprintf("%s: %s", e.Role, e.Content))
			contents = append(contents, e.Content)
		}
	}
	return texts, contents
}

// CosineSimilarity computes the cosine of the angle between two vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
