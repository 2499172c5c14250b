package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"semantic-search-backend/models"
)

func record(query string) models.QueryRecord {
	return models.QueryRecord{
		QueryText: query,
		Limit:     5,
		Results: []models.ScoredChunk{
			{Chunk: models.Chunk{ID: "id-" + query, Text: "text for " + query}, Score: 0.9},
		},
		CreatedAt: time.Now(),
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	a := CacheKey("  What IS   Go? ", "docs", 5)
	b := CacheKey("what is go?", "docs", 5)
	if a != b {
		t.Fatalf("keys should match after normalization: %q vs %q", a, b)
	}
	if CacheKey("what is go?", "docs", 5) == CacheKey("what is go?", "docs", 6) {
		t.Fatalf("limit must be part of the key")
	}
	if CacheKey("what is go?", "docs", 5) == CacheKey("what is go?", "other", 5) {
		t.Fatalf("collection must be part of the key")
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	cache := NewMemoryQueryCache(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		q := fmt.Sprintf("query-%d", i)
		cache.Set(ctx, CacheKey(q, "docs", 5), record(q))
	}
	// Touch query-0 so query-1 becomes the eviction candidate
	if _, ok := cache.Get(ctx, CacheKey("query-0", "docs", 5)); !ok {
		t.Fatalf("query-0 should be cached")
	}

	cache.Set(ctx, CacheKey("query-3", "docs", 5), record("query-3"))

	if _, ok := cache.Get(ctx, CacheKey("query-1", "docs", 5)); ok {
		t.Fatalf("least recently used entry should have been evicted")
	}
	for _, q := range []string{"query-0", "query-2", "query-3"} {
		if _, ok := cache.Get(ctx, CacheKey(q, "docs", 5)); !ok {
			t.Fatalf("%s should still be cached", q)
		}
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	cache := NewMemoryQueryCache(16, time.Minute)
	ctx := context.Background()

	current := time.Now()
	cache.now = func() time.Time { return current }

	key := CacheKey("query", "docs", 5)
	cache.Set(ctx, key, record("query"))

	if _, ok := cache.Get(ctx, key); !ok {
		t.Fatalf("entry should be live before TTL")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestMemoryCacheUpdateExisting(t *testing.T) {
	cache := NewMemoryQueryCache(2, time.Minute)
	ctx := context.Background()
	key := CacheKey("query", "docs", 5)

	cache.Set(ctx, key, record("old"))
	cache.Set(ctx, key, record("new"))

	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatalf("entry missing after update")
	}
	if got.QueryText != "new" {
		t.Fatalf("expected updated record, got %q", got.QueryText)
	}
}
