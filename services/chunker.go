package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"semantic-search-backend/models"
)

// ChunkStrategy selects how a document is split into chunks.
type ChunkStrategy string

const (
	StrategyFixed     ChunkStrategy = "fixed"
	StrategyParagraph ChunkStrategy = "paragraph"
	StrategyMarkdown  ChunkStrategy = "markdown-smart"
	StrategyPDFPage   ChunkStrategy = "pdf-page"
)

// ParseStrategy maps a request mode to a chunking strategy.
func ParseStrategy(mode string) (ChunkStrategy, error) {
	switch mode {
	case "fixed", "":
		return StrategyFixed, nil
	case "paragraph":
		return StrategyParagraph, nil
	case "markdown", "markdown-smart":
		return StrategyMarkdown, nil
	case "pdf", "pdf-page":
		return StrategyPDFPage, nil
	default:
		return "", models.NewInputError("unknown chunking mode: %s", mode)
	}
}

// blank-line paragraph boundary, tolerating trailing whitespace on the
// empty line
var paragraphRegex = regexp.MustCompile(`\n[ \t\r]*\n+`)

type piece struct {
	text        string
	page        int
	headingPath []string
}

// ChunkDocument splits a document into ordered chunks of at most maxSize
// runes. A single paragraph, section or page that alone exceeds maxSize is
// force-split with the fixed strategy. An empty document yields no chunks.
func ChunkDocument(doc models.Document, strategy ChunkStrategy, maxSize int) ([]models.Chunk, error) {
	if maxSize <= 0 {
		return nil, models.NewInputError("chunk size must be positive, got %d", maxSize)
	}
	if doc.IsPDF() && strategy != StrategyPDFPage {
		return nil, models.NewInputError("pdf documents require the pdf-page strategy")
	}

	var pieces []piece
	switch strategy {
	case StrategyFixed:
		if err := checkUTF8(doc.Source, doc.Content); err != nil {
			return nil, err
		}
		for _, t := range splitFixed(doc.Content, maxSize) {
			pieces = append(pieces, piece{text: t})
		}
	case StrategyParagraph:
		if err := checkUTF8(doc.Source, doc.Content); err != nil {
			return nil, err
		}
		for _, t := range splitParagraphs(doc.Content, maxSize) {
			pieces = append(pieces, piece{text: t})
		}
	case StrategyMarkdown:
		if err := checkUTF8(doc.Source, doc.Content); err != nil {
			return nil, err
		}
		for _, sec := range splitMarkdownSections(doc.Content) {
			for _, t := range splitParagraphs(sec.text, maxSize) {
				pieces = append(pieces, piece{text: t, headingPath: sec.headingPath})
			}
		}
	case StrategyPDFPage:
		for i, pageText := range doc.Pages {
			if err := checkUTF8(doc.Source, pageText); err != nil {
				return nil, err
			}
			for _, t := range splitParagraphs(pageText, maxSize) {
				pieces = append(pieces, piece{text: t, page: i + 1})
			}
		}
	default:
		return nil, models.NewInputError("unknown chunking strategy: %s", strategy)
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, models.Chunk{
			Text:        p.text,
			Index:       i,
			Page:        p.page,
			HeadingPath: p.headingPath,
			Source:      doc.Source,
			ContentHash: models.HashContent(p.text),
		})
	}
	return chunks, nil
}

func checkUTF8(source, text string) error {
	if !utf8.ValidString(text) {
		return models.NewInputError("%s: content is not valid UTF-8", source)
	}
	return nil
}

// splitFixed cuts text into consecutive slices of exactly maxSize runes,
// the last slice holding the remainder. Concatenating the slices in order
// reproduces the input byte for byte.
func splitFixed(text string, maxSize int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += maxSize {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// splitParagraphs splits on blank lines and greedily merges consecutive
// paragraphs first-fit, never exceeding maxSize runes per chunk. A single
// paragraph over maxSize is force-split with the fixed strategy.
func splitParagraphs(text string, maxSize int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, para := range paragraphRegex.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pLen := utf8.RuneCountInString(para)

		if pLen > maxSize {
			flush()
			out = append(out, splitFixed(para, maxSize)...)
			continue
		}
		switch {
		case curLen == 0:
			cur.WriteString(para)
			curLen = pLen
		case curLen+2+pLen <= maxSize:
			cur.WriteString("\n\n")
			cur.WriteString(para)
			curLen += 2 + pLen
		default:
			flush()
			cur.WriteString(para)
			curLen = pLen
		}
	}
	flush()
	return out
}

type mdSection struct {
	headingPath []string
	text        string
}

// splitMarkdownSections forces a boundary at every heading line and tracks
// the stack of ancestor headings active for each section. Text before the
// first heading forms a section with an empty heading path.
func splitMarkdownSections(text string) []mdSection {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	var sections []mdSection
	var headingStack []string
	var headingLevels []int
	var cur []string
	var curPath []string

	flush := func() {
		if len(cur) == 0 {
			return
		}
		joined := strings.Join(cur, "\n")
		if strings.TrimSpace(joined) != "" {
			sections = append(sections, mdSection{headingPath: curPath, text: joined})
		}
		cur = nil
	}

	for _, line := range lines {
		level, title, ok := parseHeading(line)
		if !ok {
			cur = append(cur, line)
			continue
		}
		flush()
		for len(headingLevels) > 0 && headingLevels[len(headingLevels)-1] >= level {
			headingLevels = headingLevels[:len(headingLevels)-1]
			headingStack = headingStack[:len(headingStack)-1]
		}
		headingLevels = append(headingLevels, level)
		headingStack = append(headingStack, title)
		curPath = append([]string(nil), headingStack...)
		cur = []string{line}
	}
	flush()
	return sections
}

// parseHeading recognizes ATX headings (# .. ######) with a space after
// the marker.
func parseHeading(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(trimmed, "#") {
		return 0, "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 {
		return 0, "", false
	}
	if len(trimmed) <= level || trimmed[level] != ' ' {
		return 0, "", false
	}
	title := strings.TrimSpace(trimmed[level:])
	return level, title, true
}
