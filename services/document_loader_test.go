package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"semantic-search-backend/models"
)

func TestReadDocumentText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text body"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if doc.Source != "notes.txt" || doc.Title != "notes" {
		t.Fatalf("unexpected identity: %+v", doc)
	}
	if doc.Type != models.DocumentText || doc.Content != "plain text body" {
		t.Fatalf("unexpected content: %+v", doc)
	}
}

func TestReadDocumentMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(path, []byte("# Guide\nbody"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if doc.Type != models.DocumentMarkdown {
		t.Fatalf("expected markdown type, got %s", doc.Type)
	}
}

func TestReadDocumentUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xlsx")
	if err := os.WriteFile(path, []byte("binary"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := ReadDocument(path)
	var inputErr *models.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestSupportedFile(t *testing.T) {
	for _, name := range []string{"a.txt", "b.md", "c.pdf", "D.MD"} {
		if !SupportedFile(name) {
			t.Fatalf("%s should be supported", name)
		}
	}
	for _, name := range []string{"a.xlsx", "b.docx", "noext"} {
		if SupportedFile(name) {
			t.Fatalf("%s should not be supported", name)
		}
	}
}
