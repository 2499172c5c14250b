package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"semantic-search-backend/internal/logger"
	"semantic-search-backend/models"
	"semantic-search-backend/services"
)

const TaskIngestFile = "ingest:file"

type IngestFilePayload struct {
	Path       string `json:"path"`
	Collection string `json:"collection"`
	Mode       string `json:"mode"`
	ChunkSize  int    `json:"chunk_size"`
}

// NewIngestFileTask enqueues a deferred ingestion of an uploaded file.
// Ingestion is idempotent, so retries after partial progress are safe.
func NewIngestFileTask(path, collection, mode string, chunkSize int) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestFilePayload{
		Path:       path,
		Collection: collection,
		Mode:       mode,
		ChunkSize:  chunkSize,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestFile,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor handles queued tasks with the same ingestion pipeline the
// synchronous HTTP path uses.
type TaskProcessor struct {
	ingestor *services.Ingestor
}

func NewTaskProcessor(ingestor *services.Ingestor) *TaskProcessor {
	return &TaskProcessor{ingestor: ingestor}
}

func (p *TaskProcessor) HandleIngestFile(ctx context.Context, t *asynq.Task) error {
	var payload IngestFilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("processing queued ingest", "path", payload.Path, "collection", payload.Collection)

	report, err := p.ingestor.IngestFile(ctx, payload.Path, payload.Collection, payload.Mode, payload.ChunkSize)
	if err != nil {
		var inputErr *models.InputError
		if errors.As(err, &inputErr) {
			// Bad file content never improves on retry
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.Info("queued ingest complete",
		"source", report.Source,
		"added", report.ChunksAdded,
		"skipped", report.ChunksSkipped,
		"removed", report.ChunksRemoved)
	return nil
}
