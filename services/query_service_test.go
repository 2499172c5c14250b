package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/models"
)

func scored(id, text string, index int, score float64) vectorstore.ScoredPoint {
	return vectorstore.ScoredPoint{
		ID:    id,
		Score: score,
		Payload: map[string]any{
			"text":         text,
			"source":       "doc.txt",
			"chunk_index":  float64(index),
			"content_hash": "hash-" + id,
		},
	}
}

func TestSearchOrdering(t *testing.T) {
	store := newFakeStore()
	store.EnsureCollection(context.Background(), "docs", 3)
	store.searchHits = []vectorstore.ScoredPoint{
		scored("bbb", "middle", 1, 0.8),
		scored("aaa", "tied low", 2, 0.5),
		scored("ccc", "best", 0, 0.9),
		scored("abc", "tied low first", 3, 0.5),
	}

	qs := NewQueryService(store, &fakeEmbedder{}, nil)
	results, err := qs.Search(context.Background(), "anything", "docs", 10, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("scores not non-increasing at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
	// Ties on score break by ascending chunk ID
	if results[2].Chunk.ID != "aaa" || results[3].Chunk.ID != "abc" {
		t.Fatalf("tie-break by ID failed: got %s then %s", results[2].Chunk.ID, results[3].Chunk.ID)
	}
}

func TestSearchLimitValidation(t *testing.T) {
	qs := NewQueryService(newFakeStore(), &fakeEmbedder{}, nil)

	for _, limit := range []int{0, -1} {
		_, err := qs.Search(context.Background(), "query", "docs", limit, nil)
		var inputErr *models.InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("limit %d: expected InputError, got %v", limit, err)
		}
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	qs := NewQueryService(newFakeStore(), &fakeEmbedder{}, nil)
	_, err := qs.Search(context.Background(), "   ", "docs", 5, nil)
	var inputErr *models.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for blank query, got %v", err)
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	store := newFakeStore()
	store.EnsureCollection(context.Background(), "docs", 3)

	qs := NewQueryService(store, &fakeEmbedder{}, nil)
	results, err := qs.Search(context.Background(), "query", "docs", 5, nil)
	if err != nil {
		t.Fatalf("empty collection should not error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchMissingCollection(t *testing.T) {
	qs := NewQueryService(newFakeStore(), &fakeEmbedder{}, nil)
	_, err := qs.Search(context.Background(), "query", "nope", 5, nil)
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSearchCacheHit(t *testing.T) {
	store := newFakeStore()
	store.EnsureCollection(context.Background(), "docs", 3)
	store.searchHits = []vectorstore.ScoredPoint{scored("aaa", "cached text", 0, 0.9)}

	embedder := &fakeEmbedder{}
	cache := NewMemoryQueryCache(16, time.Minute)
	qs := NewQueryService(store, embedder, cache)

	first, err := qs.Search(context.Background(), "What is Go?", "docs", 3, nil)
	if err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	// Same query modulo case and whitespace hits the cache
	second, err := qs.Search(context.Background(), "  what IS go? ", "docs", 3, nil)
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}

	if embedder.calls != 1 {
		t.Fatalf("expected 1 embedding call, got %d", embedder.calls)
	}
	if store.searchCalls != 1 {
		t.Fatalf("expected 1 store search, got %d", store.searchCalls)
	}
	if len(first) != len(second) || first[0].Chunk.ID != second[0].Chunk.ID {
		t.Fatalf("cached result differs from original")
	}

	// A different limit is a different cache entry
	if _, err := qs.Search(context.Background(), "What is Go?", "docs", 5, nil); err != nil {
		t.Fatalf("third search failed: %v", err)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected a fresh embedding for a new limit, got %d calls", embedder.calls)
	}
}

func TestSearchFilteredBypassesCache(t *testing.T) {
	store := newFakeStore()
	store.EnsureCollection(context.Background(), "docs", 3)
	store.searchHits = []vectorstore.ScoredPoint{scored("aaa", "text", 0, 0.9)}

	cache := NewMemoryQueryCache(16, time.Minute)
	qs := NewQueryService(store, &fakeEmbedder{}, cache)

	filter := vectorstore.MustFilter(vectorstore.MatchFilter("source", "doc.txt"))
	for i := 0; i < 2; i++ {
		if _, err := qs.Search(context.Background(), "query", "docs", 3, filter); err != nil {
			t.Fatalf("filtered search failed: %v", err)
		}
	}
	if store.searchCalls != 2 {
		t.Fatalf("filtered searches must not be cached, got %d store calls", store.searchCalls)
	}
}

func TestChunkFromPayload(t *testing.T) {
	payload := map[string]any{
		"text":         "chunk text",
		"source":       "guide.md",
		"chunk_index":  float64(7),
		"page":         float64(2),
		"content_hash": "abc123",
		"heading_path": []any{"Guide", "Install"},
	}
	chunk := chunkFromPayload("point-id", payload)

	if chunk.ID != "point-id" || chunk.Text != "chunk text" || chunk.Source != "guide.md" {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
	if chunk.Index != 7 || chunk.Page != 2 || chunk.ContentHash != "abc123" {
		t.Fatalf("unexpected chunk metadata: %+v", chunk)
	}
	if len(chunk.HeadingPath) != 2 || chunk.HeadingPath[1] != "Install" {
		t.Fatalf("unexpected heading path: %v", chunk.HeadingPath)
	}
}

func TestFormatContext(t *testing.T) {
	results := []models.ScoredChunk{
		{Chunk: models.Chunk{Text: "most relevant", Source: "a.md", HeadingPath: []string{"Guide", "Install"}}, Score: 0.9},
		{Chunk: models.Chunk{Text: "second", Source: "b.pdf", Page: 3}, Score: 0.7},
		{Chunk: models.Chunk{Text: "third", Source: "c.txt"}, Score: 0.5},
	}

	plain := FormatContext(results, ContextOptions{})
	if plain != "most relevant\n\nsecond\n\nthird" {
		t.Fatalf("unexpected plain context: %q", plain)
	}

	annotated := FormatContext(results, ContextOptions{IncludeSources: true})
	if !strings.Contains(annotated, "[a.md > Guide > Install]") {
		t.Fatalf("missing heading breadcrumb: %q", annotated)
	}
	if !strings.Contains(annotated, "[b.pdf, page 3]") {
		t.Fatalf("missing page annotation: %q", annotated)
	}

	capped := FormatContext(results, ContextOptions{MaxChars: 22})
	if capped != "most relevant\n\nsecond" {
		t.Fatalf("unexpected capped context: %q", capped)
	}
}
