package main

import (
	"context"
	"log"

	"semantic-search-backend/internal/ai"
	"semantic-search-backend/internal/config"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/internal/queue"
	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	// The worker shares the HTTP server's ingestion pipeline
	store := vectorstore.NewQdrantClient(cfg.QdrantURL, cfg.QdrantAPIKey)
	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding provider:", err)
	}
	defer embedder.Close()

	ingestor := services.NewIngestor(store, embedder, cfg.EmbedBatchSize, cfg.EmbedWorkers)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// Ingestion is embedding-bound; the pipeline already caps
			// concurrent provider calls, so a few tasks at a time is plenty
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingestor)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestFile, processor.HandleIngestFile)

	log.Printf("Starting ingest worker, redis=%s", redisOpt.Addr)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
