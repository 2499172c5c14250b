package ai

import (
	"context"
	"os"
	"testing"

	"semantic-search-backend/internal/config"
)

func TestGeminiEmbedText(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("config load failed: %v", err)
	}
	embedder, err := NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		t.Fatalf("embedder init failed: %v", err)
	}
	defer embedder.Close()

	vec, err := embedder.EmbedText(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	if len(vec) != embedder.Dimension() {
		t.Fatalf("expected %d dimensions, got %d", embedder.Dimension(), len(vec))
	}
}

func TestGeminiEmbedBatch(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("config load failed: %v", err)
	}
	embedder, err := NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		t.Fatalf("embedder init failed: %v", err)
	}
	defer embedder.Close()

	vecs, err := embedder.EmbedBatch(context.Background(), []string{"first text", "second text"})
	if err != nil {
		t.Fatalf("batch embedding error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
}
