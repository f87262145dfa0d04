// Package resume extracts plain text from uploaded resumes (txt, pdf, docx).
package resume

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// MaxSize is the largest accepted upload.
const MaxSize = 10 << 20

// Format is a supported resume file format.
type Format string

// Supported formats.
const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

const (
	mimeText = "text/plain"
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	paragraphEndRe = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTagRe       = regexp.MustCompile(`<[^>]*>`)
)

// DetectFormat picks the format from the file extension, then the declared
// content type, then magic bytes.
func DetectFormat(filename, contentType string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".md":
		return FormatText, nil
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	}

	mt, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch strings.TrimSpace(mt) {
	case mimeText:
		return FormatText, nil
	case mimePDF:
		return FormatPDF, nil
	case mimeDOCX:
		return FormatDOCX, nil
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF, nil
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedFormat, filename, contentType)
}

// Extract returns the plain text of a resume in format f.
func Extract(data []byte, f Format) (string, error) {
	if len(data) > MaxSize {
		return "", fmt.Errorf("%w: resume larger than %d bytes", domain.ErrInvalidArgument, MaxSize)
	}
	switch f {
	case FormatText:
		return strings.ToValidUTF8(string(data), " "), nil
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, f)
	}
}

// ExtractFile detects the format and extracts the text.
func ExtractFile(filename, contentType string, data []byte) (string, error) {
	f, err := DetectFormat(filename, contentType, data)
	if err != nil {
		return "", err
	}
	return Extract(data, f)
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", domain.ErrUnsupportedFormat, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: read pdf: %v", domain.ErrUnsupportedFormat, err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: read docx: %v", domain.ErrUnsupportedFormat, err)
	}
	defer doc.Close()

	xml := doc.Editable().GetContent()
	xml = paragraphEndRe.ReplaceAllString(xml, "\n")
	return html.UnescapeString(xmlTagRe.ReplaceAllString(xml, "")), nil
}
