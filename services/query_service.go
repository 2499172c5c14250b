package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"semantic-search-backend/internal/ai"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/models"
)

// QueryService embeds query text and runs nearest-neighbor search against a
// collection. Results are deterministic: descending score, ties broken by
// ascending chunk ID. A cache, when configured, short-circuits repeat
// queries within its TTL.
type QueryService struct {
	store    vectorstore.Store
	embedder ai.EmbeddingProvider
	cache    QueryCache
}

func NewQueryService(store vectorstore.Store, embedder ai.EmbeddingProvider, cache QueryCache) *QueryService {
	return &QueryService{store: store, embedder: embedder, cache: cache}
}

// Search returns up to limit chunks ranked by similarity to queryText.
// An existing collection with no points yields an empty slice; a collection
// that does not exist yields models.NotFoundError.
func (qs *QueryService) Search(ctx context.Context, queryText, collection string, limit int, filter map[string]any) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		return nil, models.NewInputError("limit must be positive, got %d", limit)
	}
	if strings.TrimSpace(queryText) == "" {
		return nil, models.NewInputError("query text is empty")
	}

	tracer := otel.Tracer("query-service")
	ctx, span := tracer.Start(ctx, "query.search")
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("limit", limit),
	)
	defer span.End()

	// Filtered searches bypass the cache; the key does not encode the filter.
	cacheable := qs.cache != nil && filter == nil
	key := CacheKey(queryText, collection, limit)
	if cacheable {
		if record, ok := qs.cache.Get(ctx, key); ok {
			logger.Debug("query cache hit", "collection", collection)
			return record.Results, nil
		}
	}

	vector, err := qs.embedder.EmbedText(ctx, queryText)
	if err != nil {
		return nil, err
	}

	hits, err := qs.store.SearchPoints(ctx, collection, vector, limit, filter)
	if err != nil {
		return nil, err
	}

	results := make([]models.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.ScoredChunk{
			Chunk: chunkFromPayload(hit.ID, hit.Payload),
			Score: hit.Score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if cacheable {
		qs.cache.Set(ctx, key, models.QueryRecord{
			QueryText:  queryText,
			Collection: collection,
			Limit:      limit,
			Results:    results,
			CreatedAt:  time.Now(),
		})
	}
	return results, nil
}

// ContextOptions controls how search hits are flattened into a single
// prompt-injection string.
type ContextOptions struct {
	// MaxChars caps the rendered output in runes; 0 means unlimited.
	MaxChars int
	// IncludeSources prefixes each chunk with its source, page and
	// heading breadcrumb.
	IncludeSources bool
}

// FormatContext concatenates chunk texts in score-descending order into one
// string. Chunks that would push the output past MaxChars are dropped.
func FormatContext(results []models.ScoredChunk, opts ContextOptions) string {
	var b strings.Builder
	total := 0
	for _, r := range results {
		var section string
		if opts.IncludeSources {
			section = chunkHeader(r.Chunk) + "\n" + r.Chunk.Text
		} else {
			section = r.Chunk.Text
		}
		cost := len([]rune(section))
		if b.Len() > 0 {
			cost += 2
		}
		if opts.MaxChars > 0 && total+cost > opts.MaxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section)
		total += cost
	}
	return b.String()
}

func chunkHeader(c models.Chunk) string {
	header := "[" + c.Source
	if c.Page > 0 {
		header += fmt.Sprintf(", page %d", c.Page)
	}
	if len(c.HeadingPath) > 0 {
		header += " > " + strings.Join(c.HeadingPath, " > ")
	}
	return header + "]"
}

// chunkFromPayload rebuilds a Chunk from the stored point payload. Numeric
// payload values arrive as float64 after JSON decoding.
func chunkFromPayload(id string, payload map[string]any) models.Chunk {
	chunk := models.Chunk{ID: id}
	if v, ok := payload["text"].(string); ok {
		chunk.Text = v
	}
	if v, ok := payload["source"].(string); ok {
		chunk.Source = v
	}
	if v, ok := payload["content_hash"].(string); ok {
		chunk.ContentHash = v
	}
	if v, ok := payload["chunk_index"].(float64); ok {
		chunk.Index = int(v)
	}
	if v, ok := payload["page"].(float64); ok {
		chunk.Page = int(v)
	}
	if raw, ok := payload["heading_path"].([]any); ok {
		path := make([]string, 0, len(raw))
		for _, h := range raw {
			if s, ok := h.(string); ok {
				path = append(path, s)
			}
		}
		chunk.HeadingPath = path
	}
	return chunk
}
