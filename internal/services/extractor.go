package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

type documentFormat string

const (
	formatPDF     documentFormat = "pdf"
	formatDOCX    documentFormat = "docx"
	formatText    documentFormat = "text"
	formatUnknown documentFormat = ""
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Document is an uploaded file held in memory for the length of one run.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TextExtractor turns a document into plain text. An empty payload yields
// empty text rather than an error; callers decide what empty means.
type TextExtractor interface {
	Extract(ctx context.Context, doc *Document) (string, error)
}

type documentExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &documentExtractor{}
}

// Extract implements TextExtractor.
func (d *documentExtractor) Extract(ctx context.Context, doc *Document) (string, error) {
	if doc == nil || len(doc.Data) == 0 {
		return "", nil
	}

	var (
		text string
		err  error
	)
	switch detectFormat(doc) {
	case formatPDF:
		text, err = extractPDFText(ctx, doc.Data)
	case formatDOCX:
		text, err = extractDocxText(doc.Data)
	case formatText:
		if !utf8.Valid(doc.Data) {
			err = fmt.Errorf("text document is not valid UTF-8: %w", ErrUnsupportedFormat)
		} else {
			text = string(doc.Data)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, describeFormat(doc))
	}
	if err != nil {
		return "", &ExtractionError{Filename: doc.Filename, Err: err}
	}

	return CleanText(text), nil
}

func detectFormat(doc *Document) documentFormat {
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return formatPDF
	case ".docx":
		return formatDOCX
	case ".txt", ".md":
		return formatText
	}

	contentType := strings.ToLower(doc.ContentType)
	switch {
	case strings.HasPrefix(contentType, mimePDF):
		return formatPDF
	case strings.HasPrefix(contentType, mimeDOCX):
		return formatDOCX
	case strings.HasPrefix(contentType, "text/plain"):
		return formatText
	}

	switch {
	case bytes.HasPrefix(doc.Data, []byte("%PDF-")):
		return formatPDF
	case bytes.HasPrefix(doc.Data, []byte("PK\x03\x04")):
		return formatDOCX
	}

	return formatUnknown
}

func describeFormat(doc *Document) string {
	if ext := filepath.Ext(doc.Filename); ext != "" {
		return ext
	}
	if doc.ContentType != "" {
		return doc.ContentType
	}
	return "unknown type"
}

// extractPDFText reads every page's text layer. The pdf package panics on
// some malformed inputs, so panics are turned into errors.
func extractPDFText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped; the rest of the document still counts
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent()), nil
}

// docxXMLToText flattens WordprocessingML into text, one paragraph per line.
func docxXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(content)
}

// CleanText trims every line and drops the blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleanedLines := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
