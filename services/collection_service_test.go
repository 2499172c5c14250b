package services

import (
	"context"
	"errors"
	"testing"

	"semantic-search-backend/models"
)

func TestCollectionCreateValidation(t *testing.T) {
	cm := NewCollectionManager(newFakeStore())
	ctx := context.Background()

	var inputErr *models.InputError
	if err := cm.Create(ctx, "", 768); !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for empty name, got %v", err)
	}
	if err := cm.Create(ctx, "docs", 0); !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for zero dimension, got %v", err)
	}
	if err := cm.Create(ctx, "docs", 768); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// Creating again is idempotent
	if err := cm.Create(ctx, "docs", 768); err != nil {
		t.Fatalf("repeat create failed: %v", err)
	}
}

func TestCollectionSwitch(t *testing.T) {
	store := newFakeStore()
	cm := NewCollectionManager(store)
	ctx := context.Background()

	if err := cm.Create(ctx, "docs", 768); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	handle, err := cm.Switch(ctx, "docs")
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if handle.Name != "docs" || handle.ChunkCount != 0 {
		t.Fatalf("unexpected handle: %+v", handle)
	}

	var notFound *models.NotFoundError
	if _, err := cm.Switch(ctx, "missing"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCollectionDeleteVsClear(t *testing.T) {
	cm := NewCollectionManager(newFakeStore())
	ctx := context.Background()

	// Explicit delete of a missing collection is a NotFoundError
	var notFound *models.NotFoundError
	if err := cm.Delete(ctx, "missing"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	// Bulk clear of a missing collection is a no-op success
	if err := cm.Clear(ctx, "missing"); err != nil {
		t.Fatalf("clear of missing collection should be a no-op, got %v", err)
	}

	if err := cm.Create(ctx, "docs", 768); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := cm.Delete(ctx, "docs"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := cm.Switch(ctx, "docs"); err == nil {
		t.Fatalf("collection should be gone after delete")
	}
}

func TestCollectionList(t *testing.T) {
	store := newFakeStore()
	cm := NewCollectionManager(store)
	ctx := context.Background()

	ing := NewIngestor(store, &fakeEmbedder{}, 32, 4)
	if err := cm.Create(ctx, "empty", 3); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	doc := models.Document{Source: "a.txt", Type: models.DocumentText, Content: "listed content"}
	if _, err := ing.Ingest(ctx, doc, "filled", StrategyFixed, 100); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	collections, err := cm.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	counts := make(map[string]int)
	for _, c := range collections {
		counts[c.Name] = c.ChunkCount
	}
	if counts["empty"] != 0 {
		t.Fatalf("expected empty collection to have 0 chunks, got %d", counts["empty"])
	}
	if counts["filled"] != 1 {
		t.Fatalf("expected filled collection to have 1 chunk, got %d", counts["filled"])
	}
}
