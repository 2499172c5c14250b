package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chunk is the atomic unit of stored and retrieved text. ID is derived
// deterministically from (source, index, content hash), so re-ingesting
// unchanged content always maps to the same point in the vector store.
type Chunk struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Index       int      `json:"index"`
	Page        int      `json:"page,omitempty"`
	HeadingPath []string `json:"heading_path,omitempty"`
	Source      string   `json:"source"`
	ContentHash string   `json:"content_hash"`
}

// chunkIDNamespace scopes the UUIDv3 point IDs generated for chunks.
var chunkIDNamespace = uuid.MustParse("2f9d6d85-5b0a-4f8f-9a3e-6c1b7d4e0a42")

// ChunkID derives the stable point ID for a chunk. Qdrant only accepts UUID
// (or integer) point IDs, so the deterministic key is hashed into a UUIDv3.
func ChunkID(source string, index int, contentHash string) string {
	raw := fmt.Sprintf("%s::%d::%s", strings.ToLower(source), index, contentHash)
	return uuid.NewMD5(chunkIDNamespace, []byte(raw)).String()
}

// HashContent returns the hex SHA-256 of a chunk's text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Collection describes a named vector namespace.
type Collection struct {
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
	Dimension  int    `json:"embedding_dimension,omitempty"`
}

// QueryRecord is a cached search result.
type QueryRecord struct {
	QueryText  string        `json:"query_text"`
	Collection string        `json:"collection"`
	Limit      int           `json:"limit"`
	Results    []ScoredChunk `json:"results"`
	CreatedAt  time.Time     `json:"created_at"`
}
