package services

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"semantic-search-backend/internal/logger"
	"semantic-search-backend/models"
)

// ReadDocument loads a file from disk into an immutable Document. The
// document type is inferred from the extension; PDFs keep per-page text.
func ReadDocument(path string) (models.Document, error) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	doc := models.Document{
		Source: base,
		Title:  strings.TrimSuffix(base, filepath.Ext(base)),
	}

	switch ext {
	case ".txt", ".text":
		doc.Type = models.DocumentText
	case ".md", ".markdown":
		doc.Type = models.DocumentMarkdown
	case ".pdf":
		doc.Type = models.DocumentPDF
	default:
		return models.Document{}, models.NewInputError("unsupported file type: %s", base)
	}

	if doc.Type == models.DocumentPDF {
		pages, err := ExtractPDFPages(path)
		if err != nil {
			return models.Document{}, err
		}
		doc.Pages = pages
		return doc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, models.NewInputError("failed to read %s: %v", base, err)
	}
	doc.Content = string(content)
	return doc, nil
}

// ExtractPDFPages extracts text page by page. Pages whose text cannot be
// decoded are kept as empty strings so page numbers stay aligned.
func ExtractPDFPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, models.NewInputError("failed to parse pdf %s: %v", filepath.Base(path), err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract pdf page text", "file", filepath.Base(path), "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// SupportedFile reports whether a file name has an ingestable extension.
func SupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".md", ".markdown", ".pdf":
		return true
	}
	return false
}
