package vectorstore

import "context"

// Point is a vector with its payload, addressed by a UUID point ID.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Store is the vector store capability the rest of the system depends on:
// collection lifecycle, point upsert/delete, nearest-neighbor search and
// payload-filtered listing. Failures surface as models.StoreError (or
// models.NotFoundError where an operation requires existence).
type Store interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	CountPoints(ctx context.Context, collection string) (int, error)

	UpsertPoints(ctx context.Context, collection string, points []Point) error
	DeletePointsByIDs(ctx context.Context, collection string, ids []string) error
	DeletePointsByFilter(ctx context.Context, collection string, filter map[string]any) error
	GetPoint(ctx context.Context, collection, id string) (*Point, error)

	ScrollPoints(ctx context.Context, collection string, filter map[string]any) ([]Point, error)
	SearchPoints(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]ScoredPoint, error)
}

// MatchFilter builds a single key=value match condition.
func MatchFilter(key string, value any) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}

// MustFilter combines conditions that must all hold.
func MustFilter(conditions ...map[string]any) map[string]any {
	return map[string]any{
		"must": conditions,
	}
}
