// Package extract turns uploaded files into plain text.
package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

// Supported content types.
const (
	ContentTypePDF      = "application/pdf"
	ContentTypePlain    = "text/plain"
	ContentTypeMarkdown = "text/markdown"
)

// Extractor converts one family of formats into text.
type Extractor interface {
	CanHandle(contentType string) bool
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// Dispatcher picks the first registered extractor accepting a file's content type.
type Dispatcher struct {
	extractors []Extractor
	logger     *zap.Logger
}

// NewDispatcher creates a Dispatcher scanning extractors in the given order.
func NewDispatcher(logger *zap.Logger, extractors ...Extractor) *Dispatcher {
	return &Dispatcher{extractors: extractors, logger: logger}
}

// Default returns a Dispatcher with the PDF, Markdown and plain-text extractors.
func Default(logger *zap.Logger) *Dispatcher {
	return NewDispatcher(logger, NewPDF(), NewMarkdown(), NewPlainText())
}

// ContentTypeFor infers a normalized content type from the file extension.
// Unknown extensions are treated as plain text.
func ContentTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return ContentTypePDF
	case ".md":
		return ContentTypeMarkdown
	default:
		return ContentTypePlain
	}
}

// HasKnownExtension reports whether fileName ends in an extension with a dedicated extractor.
func HasKnownExtension(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// IsSupported reports whether contentType names one of the accepted upload types.
func IsSupported(contentType string) bool {
	switch normalize(contentType) {
	case ContentTypePDF, ContentTypePlain, ContentTypeMarkdown:
		return true
	}
	return false
}

// ExtractText routes the stream to an extractor chosen by file extension.
func (d *Dispatcher) ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error) {
	contentType := ContentTypeFor(fileName)
	for _, e := range d.extractors {
		if !e.CanHandle(contentType) {
			continue
		}
		text, err := e.ExtractText(ctx, r, fileName)
		if err != nil {
			return "", err
		}
		d.logger.Debug("text extracted",
			zap.String("file_name", fileName),
			zap.String("content_type", contentType),
			zap.Int("chars", len(text)),
		)
		return text, nil
	}
	return "", fmt.Errorf("no extractor for %q: %w", filepath.Ext(fileName), domain.ErrUnsupportedFormat)
}

// normalize strips MIME parameters and lowercases the type.
func normalize(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", domain.ErrExtractionFailed)
	}
	return data, nil
}
