package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"semantic-search-backend/internal/config"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/services"
	"semantic-search-backend/utils"
)

// SetupAdminRoutes registers the destructive maintenance endpoints.
func SetupAdminRoutes(router *gin.Engine, cfg *config.Config, cm *services.CollectionManager, ing *services.Ingestor, store vectorstore.Store) {
	router.POST("/delete_all_points", HandleDeleteAllPoints(cm, cfg))
	router.POST("/delete_point", HandleDeletePoint(store, cfg))
	router.POST("/delete_uploaded_file", HandleDeleteUploadedFile(ing, cfg))
	router.POST("/delete_uploaded_all_files", HandleDeleteUploadedAllFiles(ing, cfg))
}

// HandleDeleteAllPoints drops every point in a collection. A collection
// that does not exist is treated as already cleared.
func HandleDeleteAllPoints(cm *services.CollectionManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection := c.PostForm("collection")
		if collection == "" {
			collection = cfg.DefaultCollection
		}

		if err := cm.Clear(c.Request.Context(), collection); err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}

		logger.Info("cleared collection", "collection", collection)
		c.JSON(http.StatusOK, gin.H{
			"message":    "All points deleted",
			"collection": collection,
		})
	}
}

// HandleDeletePoint removes a single point by ID. Unlike the bulk clear,
// a missing point is a 404.
func HandleDeletePoint(store vectorstore.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection := c.PostForm("collection")
		if collection == "" {
			collection = cfg.DefaultCollection
		}
		pointID := c.PostForm("point_id")
		if pointID == "" {
			utils.RespondWithBadRequest(c, "point_id is required", nil)
			return
		}

		ctx := c.Request.Context()
		if _, err := store.GetPoint(ctx, collection, pointID); err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		if err := store.DeletePointsByIDs(ctx, collection, []string{pointID}); err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":    "Point deleted",
			"point_id":   pointID,
			"collection": collection,
		})
	}
}

// HandleDeleteUploadedFile removes an uploaded file from disk along with
// every chunk ingested from it.
func HandleDeleteUploadedFile(ing *services.Ingestor, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := filepath.Base(c.PostForm("filename"))
		if filename == "" || filename == "." {
			utils.RespondWithBadRequest(c, "filename is required", nil)
			return
		}
		collection := c.PostForm("collection")
		if collection == "" {
			collection = cfg.DefaultCollection
		}

		path := filepath.Join(cfg.UploadDir, filename)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			utils.RespondWithNotFound(c, "Uploaded file not found: "+filename)
			return
		}

		if err := ing.RemoveSource(c.Request.Context(), collection, filename); err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		if err := os.Remove(path); err != nil {
			utils.RespondWithInternalError(c, "Failed to remove file", nil)
			return
		}

		logger.Info("deleted uploaded file", "file", filename, "collection", collection)
		c.JSON(http.StatusOK, gin.H{
			"message":  "File and its chunks deleted",
			"filename": filename,
		})
	}
}

// HandleDeleteUploadedAllFiles clears the upload directory and the chunks
// of every file in it.
func HandleDeleteUploadedAllFiles(ing *services.Ingestor, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection := c.PostForm("collection")
		if collection == "" {
			collection = cfg.DefaultCollection
		}

		entries, err := os.ReadDir(cfg.UploadDir)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusOK, gin.H{"message": "No uploaded files", "deleted": 0})
				return
			}
			utils.RespondWithInternalError(c, "Failed to read upload directory", nil)
			return
		}

		deleted := 0
		var failures []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if err := ing.RemoveSource(c.Request.Context(), collection, name); err != nil {
				logger.Error("failed to remove chunks", "file", name, "error", err)
				failures = append(failures, name)
				continue
			}
			if err := os.Remove(filepath.Join(cfg.UploadDir, name)); err != nil {
				logger.Error("failed to remove file", "file", name, "error", err)
				failures = append(failures, name)
				continue
			}
			deleted++
		}

		resp := gin.H{"message": "Uploaded files deleted", "deleted": deleted}
		if len(failures) > 0 {
			resp["failed"] = failures
		}
		c.JSON(http.StatusOK, resp)
	}
}
