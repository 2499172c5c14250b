package routes

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"semantic-search-backend/internal/config"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/internal/queue"
	"semantic-search-backend/services"
	"semantic-search-backend/utils"
)

// SetupIngestRoutes registers the upload endpoint.
func SetupIngestRoutes(router *gin.Engine, cfg *config.Config, ing *services.Ingestor, queueClient *asynq.Client) {
	router.POST("/ingest", HandleIngest(ing, queueClient, cfg))
}

// HandleIngest accepts a multipart file upload, stores it under the upload
// directory (overwriting any previous version of the same name) and ingests
// it. Files above the sync processing limit are handed to the task queue
// and acknowledged with 202 instead.
func HandleIngest(ing *services.Ingestor, queueClient *asynq.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided", nil)
			return
		}
		defer file.Close()

		filename := filepath.Base(header.Filename)
		if !services.SupportedFile(filename) {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_file_type",
				"Only .txt, .md and .pdf files are supported", nil)
			return
		}
		if header.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		collection := c.PostForm("collection")
		if collection == "" {
			collection = cfg.DefaultCollection
		}
		mode := c.PostForm("mode")
		if mode == "" {
			mode = cfg.DefaultChunkMode
		}
		chunkSize := cfg.DefaultChunkSize
		if raw := c.PostForm("chunk_size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				utils.RespondWithBadRequest(c, "chunk_size must be a positive integer", nil)
				return
			}
			chunkSize = parsed
		}

		if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
			utils.RespondWithInternalError(c, "Failed to create upload directory", nil)
			return
		}

		// Re-uploading the same filename overwrites the stored copy; the
		// ingest pipeline then reconciles stored chunks against the new
		// content.
		path := filepath.Join(cfg.UploadDir, filename)
		dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to open destination", nil)
			return
		}
		if _, err := io.Copy(dst, io.LimitReader(file, cfg.MaxFileSize)); err != nil {
			dst.Close()
			utils.RespondWithInternalError(c, "Failed to save file", nil)
			return
		}
		dst.Close()

		if queueClient != nil && cfg.AsyncIngestEnabled && header.Size > cfg.SyncIngestLimit {
			task, err := queue.NewIngestFileTask(path, collection, mode, chunkSize)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create ingestion task", nil)
				return
			}
			info, err := queueClient.Enqueue(task)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to enqueue ingestion task", nil)
				return
			}
			logger.Info("queued large upload", "file", filename, "task_id", info.ID)
			c.JSON(http.StatusAccepted, gin.H{
				"status":     "queued",
				"message":    "File accepted for processing",
				"filename":   filename,
				"collection": collection,
				"task_id":    info.ID,
			})
			return
		}

		report, err := ing.IngestFile(c.Request.Context(), path, collection, mode, chunkSize)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}
