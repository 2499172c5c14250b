package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"semantic-search-backend/internal/config"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/models"
)

// EmbeddingProvider turns text into fixed-length vectors. Implementations
// must be safe for concurrent use.
type EmbeddingProvider interface {
	Dimension() int
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GeminiEmbedder produces embeddings via Google Generative AI
// (text-embedding-004 by default). External calls go through a circuit
// breaker and a client-side rate limiter; transient failures are retried
// with exponential backoff before surfacing as EmbeddingError.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimension  int
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeminiEmbedder{
		client:     client,
		model:      cfg.GoogleEmbeddingsModel,
		dimension:  cfg.VectorDimensions,
		maxRetries: cfg.EmbedMaxRetries,
		breaker:    breaker,
		// stay under the free-tier embed RPM with some headroom
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}, nil
}

func (g *GeminiEmbedder) Dimension() int { return g.dimension }

func (g *GeminiEmbedder) Close() error { return g.client.Close() }

// EmbedText returns the embedding vector for a single text.
func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one batch request. Callers are expected
// to keep batches at a sane size (the ingestor batches at EmbedBatchSize).
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("gemini-embedder")
	ctx, span := tracer.Start(ctx, "gemini.embed_batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("embed.batch_size", len(texts)),
		attribute.String("embed.model", g.model),
	)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &models.EmbeddingError{Op: "batch", Attempts: attempt + 1, Err: err}
		}

		vecs, err := g.embedOnce(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if err == gobreaker.ErrOpenState || ctx.Err() != nil {
			break
		}
		if attempt < g.maxRetries {
			// Exponential backoff
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return nil, &models.EmbeddingError{Op: "batch", Attempts: attempt + 1, Err: ctx.Err()}
			}
		}
	}

	span.SetAttributes(attribute.Bool("embed.error", true))
	return nil, &models.EmbeddingError{Op: "batch", Attempts: g.maxRetries + 1, Err: lastErr}
}

func (g *GeminiEmbedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		em := g.client.EmbeddingModel(g.model)
		batch := em.NewBatch()
		for _, t := range texts {
			batch = batch.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
		}
		vecs := make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, fmt.Errorf("no embedding returned for item %d", i)
			}
			vecs[i] = e.Values
		}
		return vecs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}
