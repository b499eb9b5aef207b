package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

// PDF validates the document structure with pdfcpu, then decodes the text of
// every page with ledongthuc/pdf, which maps glyphs through the font
// encodings and ToUnicode CMaps (including Identity-H CID fonts).
// Pages are joined by newlines.
type PDF struct {
	conf *model.Configuration
}

// NewPDF creates a PDF extractor with relaxed validation.
func NewPDF() *PDF {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDF{conf: conf}
}

// CanHandle accepts any content type mentioning pdf.
func (p *PDF) CanHandle(contentType string) bool {
	return strings.Contains(normalize(contentType), "pdf")
}

// ExtractText reads the whole document and returns its text page by page.
func (p *PDF) ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return "", err
	}

	if _, err := api.ReadAndValidate(bytes.NewReader(data), p.conf); err != nil {
		return "", fmt.Errorf("parse pdf %s: %v: %w", fileName, err, domain.ErrExtractionFailed)
	}

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %v: %w", fileName, err, domain.ErrExtractionFailed)
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := pageText(doc, i)
		if err != nil {
			return "", fmt.Errorf("read page %d of %s: %v: %w", i, fileName, err, domain.ErrExtractionFailed)
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// pageText decodes one page and collapses its whitespace line by line.
// The reader panics on some malformed objects; that surfaces as an error.
func pageText(doc *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()

	page := doc.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	raw, err := page.GetPlainText(nil)
	if err != nil {
		return "", err
	}

	// Separators decoded through a multi-byte CMap come back as U+FFFD.
	raw = strings.ReplaceAll(raw, string(utf8.RuneError), "\n")
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n"), nil
}
