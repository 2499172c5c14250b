package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"semantic-search-backend/internal/ai"
	"semantic-search-backend/internal/config"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/internal/telemetry"
	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/middleware"
	"semantic-search-backend/routes"
	"semantic-search-backend/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	// Tracing
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("semantic-search-backend", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdown()
	}

	// Vector store and embedding provider
	store := vectorstore.NewQdrantClient(cfg.QdrantURL, cfg.QdrantAPIKey)
	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding provider:", err)
	}
	defer embedder.Close()

	// Redis backs rate limiting, the optional redis cache backend and the
	// async ingest queue. Everything degrades gracefully without it.
	var rdb *redis.Client
	if cfg.CacheBackend == "redis" || cfg.AsyncIngestEnabled || cfg.RateLimitReqs > 0 {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("redis unavailable, continuing without it", "error", err)
			rdb = nil
		}
	}

	var cache services.QueryCache
	switch cfg.CacheBackend {
	case "redis":
		if rdb != nil {
			cache = services.NewRedisQueryCache(rdb, cfg.CacheTTL)
		} else {
			logger.Warn("redis cache requested but unavailable, falling back to memory")
			cache = services.NewMemoryQueryCache(cfg.CacheCapacity, cfg.CacheTTL)
		}
	case "memory":
		cache = services.NewMemoryQueryCache(cfg.CacheCapacity, cfg.CacheTTL)
	case "none":
		// cache stays nil; every search hits the store
	default:
		log.Fatalf("Unknown cache backend %q", cfg.CacheBackend)
	}

	ingestor := services.NewIngestor(store, embedder, cfg.EmbedBatchSize, cfg.EmbedWorkers)
	queryService := services.NewQueryService(store, embedder, cache)
	collections := services.NewCollectionManager(store)

	var queueClient *asynq.Client
	if cfg.AsyncIngestEnabled && rdb != nil {
		redisOpt, err := config.AsynqRedisOpt(cfg)
		if err != nil {
			log.Fatal("Failed to configure task queue:", err)
		}
		queueClient = asynq.NewClient(redisOpt)
		defer queueClient.Close()
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	if rdb != nil && cfg.RateLimitReqs > 0 {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupSearchRoutes(router, cfg, queryService, collections)
	routes.SetupIngestRoutes(router, cfg, ingestor, queueClient)
	routes.SetupAdminRoutes(router, cfg, collections, ingestor, store)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
