package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"semantic-search-backend/internal/ai"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/models"
)

// Ingestor runs the idempotent create/replace pipeline: chunk the document,
// derive deterministic point IDs, embed only chunks the store does not
// already hold, upsert them, then delete stale points for the same source.
// Runs are serialized per (collection, source); different sources proceed
// in parallel.
type Ingestor struct {
	store     vectorstore.Store
	embedder  ai.EmbeddingProvider
	batchSize int
	workers   int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewIngestor(store vectorstore.Store, embedder ai.EmbeddingProvider, batchSize, workers int) *Ingestor {
	if batchSize <= 0 {
		batchSize = 32
	}
	if workers <= 0 {
		workers = 4
	}
	return &Ingestor{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		workers:   workers,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (ing *Ingestor) sourceLock(collection, source string) *sync.Mutex {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	key := collection + "\x00" + source
	lock, ok := ing.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		ing.locks[key] = lock
	}
	return lock
}

// Ingest chunks and stores one document. Re-running on unchanged input
// adds and removes nothing and reports every chunk as skipped.
func (ing *Ingestor) Ingest(ctx context.Context, doc models.Document, collection string, strategy ChunkStrategy, maxSize int) (models.IngestReport, error) {
	report := models.IngestReport{Source: doc.Source, Collection: collection}

	if doc.IsPDF() {
		strategy = StrategyPDFPage
	}
	chunks, err := ChunkDocument(doc, strategy, maxSize)
	if err != nil {
		return report, err
	}
	for i := range chunks {
		chunks[i].ID = models.ChunkID(doc.Source, chunks[i].Index, chunks[i].ContentHash)
	}

	lock := ing.sourceLock(collection, doc.Source)
	lock.Lock()
	defer lock.Unlock()

	if err := ing.store.EnsureCollection(ctx, collection, ing.embedder.Dimension()); err != nil {
		return report, err
	}

	sourceFilter := vectorstore.MustFilter(vectorstore.MatchFilter("source", doc.Source))
	existing, err := ing.store.ScrollPoints(ctx, collection, sourceFilter)
	if err != nil {
		return report, err
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, p := range existing {
		existingIDs[p.ID] = true
	}

	newIDs := make(map[string]bool, len(chunks))
	var toAdd []models.Chunk
	for _, c := range chunks {
		newIDs[c.ID] = true
		if existingIDs[c.ID] {
			report.ChunksSkipped++
		} else {
			toAdd = append(toAdd, c)
		}
	}
	var stale []string
	for _, p := range existing {
		if !newIDs[p.ID] {
			stale = append(stale, p.ID)
		}
	}
	sort.Strings(stale)

	vectors, err := ing.embedChunks(ctx, doc.Source, toAdd)
	if err != nil {
		return report, err
	}

	for start := 0; start < len(toAdd); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(toAdd) {
			end = len(toAdd)
		}
		points := make([]vectorstore.Point, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, pointFromChunk(doc, toAdd[i], vectors[i]))
		}
		if err := ing.store.UpsertPoints(ctx, collection, points); err != nil {
			return report, err
		}
		// partial progress stays visible if a later batch fails
		report.ChunksAdded = end
	}

	// Stale points go last so a failure mid-run never drops content that
	// was still valid.
	if err := ing.store.DeletePointsByIDs(ctx, collection, stale); err != nil {
		return report, err
	}
	report.ChunksRemoved = len(stale)

	logger.Info("ingested document",
		"source", doc.Source,
		"collection", collection,
		"added", report.ChunksAdded,
		"skipped", report.ChunksSkipped,
		"removed", report.ChunksRemoved,
	)
	return report, nil
}

// IngestFile loads a file from disk and ingests it. PDF files always use
// the pdf-page strategy regardless of the requested mode.
func (ing *Ingestor) IngestFile(ctx context.Context, path, collection, mode string, maxSize int) (models.IngestReport, error) {
	strategy, err := ParseStrategy(mode)
	if err != nil {
		return models.IngestReport{Source: filepath.Base(path), Collection: collection}, err
	}
	doc, err := ReadDocument(path)
	if err != nil {
		return models.IngestReport{Source: filepath.Base(path), Collection: collection}, err
	}
	return ing.Ingest(ctx, doc, collection, strategy, maxSize)
}

// IngestDirectory ingests every supported file in dir. A single file's
// failure is recorded in its report and the batch keeps going. The
// progress callback, when set, fires once per processed file.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir, collection, mode string, maxSize int, progress func(file string)) ([]models.IngestReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, models.NewInputError("failed to read directory %s: %v", dir, err)
	}

	var reports []models.IngestReport
	for _, entry := range entries {
		if entry.IsDir() || !SupportedFile(entry.Name()) {
			continue
		}
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
		path := filepath.Join(dir, entry.Name())
		report, err := ing.IngestFile(ctx, path, collection, mode, maxSize)
		if err != nil {
			report.Error = err.Error()
			logger.Error("file ingestion failed", "file", entry.Name(), "error", err)
		}
		reports = append(reports, report)
		if progress != nil {
			progress(entry.Name())
		}
	}
	return reports, nil
}

// RemoveSource deletes every stored chunk belonging to a source document.
func (ing *Ingestor) RemoveSource(ctx context.Context, collection, source string) error {
	lock := ing.sourceLock(collection, source)
	lock.Lock()
	defer lock.Unlock()

	exists, err := ing.store.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	filter := vectorstore.MustFilter(vectorstore.MatchFilter("source", source))
	return ing.store.DeletePointsByFilter(ctx, collection, filter)
}

// embedChunks embeds chunk texts in batches issued concurrently up to the
// worker limit. The semaphore doubles as backpressure: submission blocks
// once every worker is busy.
func (ing *Ingestor) embedChunks(ctx context.Context, source string, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(chunks))
	sem := make(chan struct{}, ing.workers)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	for start := 0; start < len(texts); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			if firstErr != nil {
				return nil, firstErr
			}
			return nil, ctx.Err()
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			defer func() { <-sem }()
			vecs, err := ing.embedder.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding chunks %d-%d of %s: %w", start, end-1, source, err)
					cancel()
				}
				errMu.Unlock()
				return
			}
			for i, v := range vecs {
				vectors[start+i] = v
			}
		}(start, end)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

func pointFromChunk(doc models.Document, c models.Chunk, vector []float32) vectorstore.Point {
	payload := map[string]any{
		"title":        doc.Title,
		"source":       c.Source,
		"source_type":  string(doc.Type),
		"chunk_index":  c.Index,
		"text":         c.Text,
		"content_hash": c.ContentHash,
	}
	if c.Page > 0 {
		payload["page"] = c.Page
	}
	if len(c.HeadingPath) > 0 {
		payload["heading_path"] = c.HeadingPath
	}
	return vectorstore.Point{ID: c.ID, Vector: vector, Payload: payload}
}
