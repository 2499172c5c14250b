package models

// DocumentType identifies how a source file's content is interpreted.
type DocumentType string

const (
	DocumentText     DocumentType = "text"
	DocumentMarkdown DocumentType = "markdown"
	DocumentPDF      DocumentType = "pdf"
)

// Document is an immutable snapshot of a source file. For PDFs the content
// is kept per page so chunking can preserve page boundaries; for text and
// markdown only Content is set.
type Document struct {
	Source  string       `json:"source"`
	Title   string       `json:"title"`
	Type    DocumentType `json:"type"`
	Content string       `json:"content,omitempty"`
	Pages   []string     `json:"pages,omitempty"`
}

// IsPDF reports whether the document carries per-page content.
func (d *Document) IsPDF() bool {
	return d.Type == DocumentPDF
}
