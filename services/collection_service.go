package services

import (
	"context"

	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/models"
)

// CollectionManager tracks named vector collections. It never holds a
// mutable "current collection": Switch returns a handle the caller threads
// explicitly through ingest and query calls.
type CollectionManager struct {
	store vectorstore.Store
}

func NewCollectionManager(store vectorstore.Store) *CollectionManager {
	return &CollectionManager{store: store}
}

// Create makes the collection if it does not already exist. The dimension
// is fixed at creation and must equal the embedding provider's output size.
func (m *CollectionManager) Create(ctx context.Context, name string, dim int) error {
	if name == "" {
		return models.NewInputError("collection name must not be empty")
	}
	if dim <= 0 {
		return models.NewInputError("embedding dimension must be positive, got %d", dim)
	}
	return m.store.EnsureCollection(ctx, name, dim)
}

// Switch validates that the collection exists and returns a handle for it.
func (m *CollectionManager) Switch(ctx context.Context, name string) (models.Collection, error) {
	exists, err := m.store.CollectionExists(ctx, name)
	if err != nil {
		return models.Collection{}, err
	}
	if !exists {
		return models.Collection{}, &models.NotFoundError{Kind: "collection", Name: name}
	}
	count, err := m.store.CountPoints(ctx, name)
	if err != nil {
		return models.Collection{}, err
	}
	return models.Collection{Name: name, ChunkCount: count}, nil
}

// Delete removes the collection and every point in it. Deleting a
// collection that does not exist is a NotFoundError.
func (m *CollectionManager) Delete(ctx context.Context, name string) error {
	exists, err := m.store.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return &models.NotFoundError{Kind: "collection", Name: name}
	}
	return m.store.DeleteCollection(ctx, name)
}

// Clear is the bulk variant used by delete-all-points style requests: it
// drops every stored point and succeeds as a no-op when the collection is
// absent.
func (m *CollectionManager) Clear(ctx context.Context, name string) error {
	exists, err := m.store.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return m.store.DeleteCollection(ctx, name)
}

// List returns every collection with its chunk count.
func (m *CollectionManager) List(ctx context.Context) ([]models.Collection, error) {
	names, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	collections := make([]models.Collection, 0, len(names))
	for _, name := range names {
		count, err := m.store.CountPoints(ctx, name)
		if err != nil {
			return nil, err
		}
		collections = append(collections, models.Collection{Name: name, ChunkCount: count})
	}
	return collections, nil
}
