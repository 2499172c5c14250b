package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"semantic-search-backend/internal/config"
	"semantic-search-backend/services"
	"semantic-search-backend/utils"
)

type searchRequest struct {
	Query      string `json:"query"`
	Limit      *int   `json:"limit"`
	Collection string `json:"collection"`
}

const defaultSearchLimit = 5

// SetupSearchRoutes registers the query-side endpoints.
func SetupSearchRoutes(router *gin.Engine, cfg *config.Config, qs *services.QueryService, cm *services.CollectionManager) {
	router.GET("/", HandleRoot())
	router.GET("/collections", HandleListCollections(cm))
	router.POST("/search", HandleSearch(qs, cfg))
}

// HandleSearch runs a semantic query against a collection and returns the
// ranked chunk list.
func HandleSearch(qs *services.QueryService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}

		collection := req.Collection
		if collection == "" {
			collection = cfg.DefaultCollection
		}
		limit := defaultSearchLimit
		if req.Limit != nil {
			limit = *req.Limit
		}

		results, err := qs.Search(c.Request.Context(), req.Query, collection, limit, nil)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"query":      req.Query,
			"collection": collection,
			"count":      len(results),
			"results":    results,
		})
	}
}

// HandleListCollections returns every collection with its chunk count.
func HandleListCollections(cm *services.CollectionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		collections, err := cm.List(c.Request.Context())
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"collections": collections})
	}
}

// HandleRoot describes the service and its endpoints.
func HandleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "semantic-search-backend",
			"endpoints": []string{
				"POST /search",
				"POST /ingest",
				"POST /delete_all_points",
				"POST /delete_point",
				"POST /delete_uploaded_file",
				"POST /delete_uploaded_all_files",
				"GET /collections",
				"GET /health",
			},
		})
	}
}
