package services

import (
	"bytes"
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"semantic-search-backend/internal/logger"
	"semantic-search-backend/models"
	"semantic-search-backend/utils"
)

// QueryCache stores successful search results keyed on
// (normalized query, collection, limit).
type QueryCache interface {
	Get(ctx context.Context, key string) (models.QueryRecord, bool)
	Set(ctx context.Context, key string, record models.QueryRecord)
}

// CacheKey normalizes the query text (lowercase, collapsed whitespace) and
// combines it with collection and limit.
func CacheKey(query, collection string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("%s\x00%s\x00%d", normalized, collection, limit)
}

type memoryCacheEntry struct {
	key       string
	record    models.QueryRecord
	expiresAt time.Time
}

// MemoryQueryCache is a bounded-capacity LRU with TTL expiry, safe for
// concurrent use through a single mutex.
type MemoryQueryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

func NewMemoryQueryCache(capacity int, ttl time.Duration) *MemoryQueryCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryQueryCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *MemoryQueryCache) Get(_ context.Context, key string) (models.QueryRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return models.QueryRecord{}, false
	}
	entry := elem.Value.(*memoryCacheEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.items, key)
		return models.QueryRecord{}, false
	}
	c.order.MoveToFront(elem)
	return entry.record, true
}

func (c *MemoryQueryCache) Set(_ context.Context, key string, record models.QueryRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*memoryCacheEntry)
		entry.record = record
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}
	elem := c.order.PushFront(&memoryCacheEntry{key: key, record: record, expiresAt: expiresAt})
	c.items[key] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryCacheEntry).key)
	}
}

// RedisQueryCache shares cached results across processes. Entries expire
// via Redis TTL; payloads above a small threshold are brotli-compressed.
type RedisQueryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisQueryCache(rdb *redis.Client, ttl time.Duration) *RedisQueryCache {
	return &RedisQueryCache{rdb: rdb, ttl: ttl}
}

const redisCachePrefix = "querycache:"

func (c *RedisQueryCache) Get(ctx context.Context, key string) (models.QueryRecord, bool) {
	raw, err := c.rdb.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		return models.QueryRecord{}, false
	}
	sep := bytes.IndexByte(raw, '|')
	if sep < 0 {
		return models.QueryRecord{}, false
	}
	algo := utils.CompressionAlgorithm(raw[:sep])
	decoded, err := utils.DecompressText(raw[sep+1:], algo)
	if err != nil {
		logger.Warn("failed to decompress cached query result", "error", err)
		return models.QueryRecord{}, false
	}
	var record models.QueryRecord
	if err := json.Unmarshal([]byte(decoded), &record); err != nil {
		return models.QueryRecord{}, false
	}
	return record, true
}

func (c *RedisQueryCache) Set(ctx context.Context, key string, record models.QueryRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	compressed, algo, err := utils.CompressText(string(data))
	if err != nil {
		return
	}
	value := append([]byte(string(algo)+"|"), compressed...)
	// Cache failures must never fail the search path
	if err := c.rdb.Set(ctx, redisCachePrefix+key, value, c.ttl).Err(); err != nil {
		logger.Warn("failed to cache query result", "error", err)
	}
}
