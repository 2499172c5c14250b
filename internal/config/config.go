package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Document handling
	UploadDir        string
	DataDir          string
	MaxFileSize      int64
	SyncIngestLimit  int64 // uploads above this size are queued to the worker
	DefaultChunkSize int
	DefaultChunkMode string

	// Vector store (Qdrant REST)
	QdrantURL         string
	QdrantAPIKey      string
	DefaultCollection string

	// Embeddings
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	VectorDimensions      int
	EmbedBatchSize        int
	EmbedWorkers          int
	EmbedMaxRetries       int

	// Query cache
	CacheBackend  string // "memory", "redis" or "none"
	CacheTTL      time.Duration
	CacheCapacity int

	// Redis (rate limiting, async queue, redis cache backend)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Async ingestion
	AsyncIngestEnabled bool

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		UploadDir:        getEnv("UPLOAD_DIR", "./uploaded"),
		DataDir:          getEnv("DATA_DIR", "./texts"),
		MaxFileSize:      getEnvInt64("MAX_FILE_SIZE", 104857600),    // 100MB
		SyncIngestLimit:  getEnvInt64("SYNC_INGEST_LIMIT", 20971520), // 20MB processed inline
		DefaultChunkSize: getEnvInt("DEFAULT_CHUNK_SIZE", 500),
		DefaultChunkMode: getEnv("DEFAULT_CHUNK_MODE", "fixed"),

		QdrantURL:         getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:      getEnv("QDRANT_API_KEY", ""),
		DefaultCollection: getEnv("DEFAULT_COLLECTION", "documents"),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),
		EmbedBatchSize:        getEnvInt("EMBED_BATCH_SIZE", 32),
		EmbedWorkers:          getEnvInt("EMBED_WORKERS", 4),
		EmbedMaxRetries:       getEnvInt("EMBED_MAX_RETRIES", 3),

		CacheBackend:  getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheCapacity: getEnvInt("CACHE_CAPACITY", 256),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		AsyncIngestEnabled: getEnvBool("ASYNC_INGEST_ENABLED", false),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.DefaultChunkSize <= 0 {
		return nil, fmt.Errorf("DEFAULT_CHUNK_SIZE must be positive, got %d", cfg.DefaultChunkSize)
	}

	switch cfg.CacheBackend {
	case "memory", "redis", "none":
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND: %s", cfg.CacheBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
