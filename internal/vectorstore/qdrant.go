package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"semantic-search-backend/models"
)

const scrollPageSize = 256

// QdrantClient talks to Qdrant's REST API. Transient failures (network
// errors, 5xx, 429) are retried with backoff; other errors surface
// immediately.
type QdrantClient struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
}

var _ Store = (*QdrantClient)(nil)

func NewQdrantClient(url, apiKey string) *QdrantClient {
	return &QdrantClient{
		baseURL:    strings.TrimRight(url, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 20 * time.Second},
		maxRetries: 2,
	}
}

func (c *QdrantClient) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	_, err = c.doRequest(ctx, http.MethodPut, "/collections/"+name, req)
	return err
}

func (c *QdrantClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/collections/"+name, nil)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (c *QdrantClient) DeleteCollection(ctx context.Context, name string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/collections/"+name, nil)
	if isNotFound(err) {
		return &models.NotFoundError{Kind: "collection", Name: name}
	}
	return err
}

func (c *QdrantClient) ListCollections(ctx context.Context) ([]string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &models.StoreError{Op: "list collections", Err: err}
	}
	names := make([]string, 0, len(parsed.Result.Collections))
	for _, col := range parsed.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

func (c *QdrantClient) CountPoints(ctx context.Context, collection string) (int, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/count", map[string]any{"exact": true})
	if err != nil {
		return 0, err
	}
	var parsed struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, &models.StoreError{Op: "count", Err: err}
	}
	return parsed.Result.Count, nil
}

func (c *QdrantClient) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, 0, len(points))
	for _, p := range points {
		payload = append(payload, map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}
	req := map[string]any{"points": payload}
	_, err := c.doRequest(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", req)
	return err
}

func (c *QdrantClient) DeletePointsByIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	req := map[string]any{"points": ids}
	_, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", req)
	return err
}

func (c *QdrantClient) DeletePointsByFilter(ctx context.Context, collection string, filter map[string]any) error {
	if len(filter) == 0 {
		return nil
	}
	req := map[string]any{"filter": filter}
	_, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", req)
	return err
}

func (c *QdrantClient) GetPoint(ctx context.Context, collection, id string) (*Point, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/collections/"+collection+"/points/"+id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, &models.NotFoundError{Kind: "point", Name: id}
		}
		return nil, err
	}
	var parsed struct {
		Result struct {
			ID      any            `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &models.StoreError{Op: "get point", Err: err}
	}
	return &Point{
		ID:      fmt.Sprintf("%v", parsed.Result.ID),
		Payload: parsed.Result.Payload,
	}, nil
}

// ScrollPoints pages through every point matching the filter, payload
// included, vectors omitted.
func (c *QdrantClient) ScrollPoints(ctx context.Context, collection string, filter map[string]any) ([]Point, error) {
	var points []Point
	var offset any
	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
		}
		if len(filter) > 0 {
			req["filter"] = filter
		}
		if offset != nil {
			req["offset"] = offset
		}
		data, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", req)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Result struct {
				Points []struct {
					ID      any            `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, &models.StoreError{Op: "scroll", Err: err}
		}
		for _, item := range parsed.Result.Points {
			points = append(points, Point{
				ID:      fmt.Sprintf("%v", item.ID),
				Payload: item.Payload,
			})
		}
		if parsed.Result.NextPageOffset == nil {
			return points, nil
		}
		offset = parsed.Result.NextPageOffset
	}
}

func (c *QdrantClient) SearchPoints(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]ScoredPoint, error) {
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		req["filter"] = filter
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/search", req)
	if err != nil {
		if isNotFound(err) {
			return nil, &models.NotFoundError{Kind: "collection", Name: collection}
		}
		return nil, err
	}
	var parsed struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &models.StoreError{Op: "search", Err: err}
	}
	hits := make([]ScoredPoint, 0, len(parsed.Result))
	for _, item := range parsed.Result {
		hits = append(hits, ScoredPoint{
			ID:      fmt.Sprintf("%v", item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	return hits, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant status %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	var st *statusError
	return errors.As(err, &st) && st.code == http.StatusNotFound
}

func (c *QdrantClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var encoded []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &models.StoreError{Op: method + " " + path, Err: err}
		}
		encoded = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		data, err, transient := c.doOnce(ctx, method, path, encoded)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !transient || ctx.Err() != nil {
			return nil, &models.StoreError{Op: method + " " + path, Transient: transient, Err: err}
		}
		if attempt < c.maxRetries {
			select {
			case <-time.After(time.Duration(1<<attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return nil, &models.StoreError{Op: method + " " + path, Transient: true, Err: ctx.Err()}
			}
		}
	}
	return nil, &models.StoreError{Op: method + " " + path, Transient: true, Err: lastErr}
}

func (c *QdrantClient) doOnce(ctx context.Context, method, path string, body []byte) (data []byte, err error, transient bool) {
	var buf io.Reader
	if body != nil {
		buf = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, err, false
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err, true
	}
	defer resp.Body.Close()
	data, _ = io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, serr, retryable
	}
	return data, nil, false
}
