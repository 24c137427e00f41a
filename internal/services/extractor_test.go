package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// buildPDF assembles an uncompressed PDF with one Helvetica text line per
// page and a correct xref table.
func buildPDF(pages ...string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // pages tree, filled in below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var kids bytes.Buffer
	for _, text := range pages {
		pageNum := len(objects) + 1
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageNum+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
		fmt.Fprintf(&kids, "%d 0 R ", pageNum)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestTextExtractor_Extract(t *testing.T) {
	extractor := NewTextExtractor()

	tests := []struct {
		name string
		doc  *Document
		want string
	}{
		{
			name: "plain text is cleaned",
			doc:  textDocument("  Jane Doe  \n\n\n  Go, Kubernetes\n\t\n"),
			want: "Jane Doe\nGo, Kubernetes",
		},
		{
			name: "markdown by extension",
			doc:  &Document{Filename: "cv.md", Data: []byte("# Jane\n- Go")},
			want: "# Jane\n- Go",
		},
		{
			name: "text by content type",
			doc:  &Document{Filename: "upload", ContentType: "text/plain; charset=utf-8", Data: []byte("Jane")},
			want: "Jane",
		},
		{
			name: "docx",
			doc: &Document{
				Filename: "cv.docx",
				Data: buildDocx(t, `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>`+
					`<w:p><w:r><w:t>Go &amp; Kubernetes</w:t></w:r></w:p>`),
			},
			want: "Jane Doe\nGo & Kubernetes",
		},
		{
			name: "single page pdf",
			doc:  &Document{Filename: "cv.pdf", Data: buildPDF("Built a caching layer in Go")},
			want: "Built a caching layer in Go",
		},
		{
			name: "multi page pdf detected by magic bytes",
			doc:  &Document{Filename: "upload", Data: buildPDF("Jane Doe", "Led a 3-person team")},
			want: "Jane Doe\nLed a 3-person team",
		},
		{
			name: "empty payload",
			doc:  &Document{Filename: "cv.pdf"},
			want: "",
		},
		{
			name: "nil document",
			doc:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := extractor.Extract(context.Background(), tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestTextExtractor_Failures(t *testing.T) {
	extractor := NewTextExtractor()

	tests := []struct {
		name            string
		doc             *Document
		wantUnsupported bool
	}{
		{
			name: "malformed pdf",
			doc:  &Document{Filename: "cv.pdf", Data: []byte("%PDF-1.7\nthis is not really a pdf")},
		},
		{
			name: "docx that is not a zip",
			doc:  &Document{Filename: "cv.docx", Data: []byte("plain bytes")},
		},
		{
			name:            "image",
			doc:             &Document{Filename: "cv.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")},
			wantUnsupported: true,
		},
		{
			name:            "text that is not utf-8",
			doc:             &Document{Filename: "cv.txt", Data: []byte{0xff, 0xfe, 0x00, 0x41}},
			wantUnsupported: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := extractor.Extract(context.Background(), tt.doc)

			assert.Empty(t, text)
			var extraction *ExtractionError
			require.ErrorAs(t, err, &extraction)
			assert.Equal(t, tt.doc.Filename, extraction.Filename)
			if tt.wantUnsupported {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
			}
		})
	}
}

func TestTextExtractor_PDFStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text, err := NewTextExtractor().Extract(ctx, &Document{Filename: "cv.pdf", Data: buildPDF("Jane Doe")})

	assert.Empty(t, text)
	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		want documentFormat
	}{
		{"extension wins", &Document{Filename: "CV.PDF", ContentType: "text/plain"}, formatPDF},
		{"docx content type", &Document{Filename: "upload", ContentType: mimeDOCX}, formatDOCX},
		{"pdf magic", &Document{Filename: "upload", Data: []byte("%PDF-1.4")}, formatPDF},
		{"zip magic", &Document{Filename: "upload", Data: []byte("PK\x03\x04rest")}, formatDOCX},
		{"unknown", &Document{Filename: "upload", Data: []byte("GIF89a")}, formatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectFormat(tt.doc))
		})
	}
}

func TestDocxXMLToText(t *testing.T) {
	xml := `<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line &lt;two&gt;</w:t></w:r></w:p>`

	assert.Equal(t, "Skills:\nGo\nLine one\nLine <two>\n", docxXMLToText(xml))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a\nb c", CleanText("\n\n  a \n\n\t b c\t\n  \n"))
	assert.Equal(t, "", CleanText(" \n \n"))
}
