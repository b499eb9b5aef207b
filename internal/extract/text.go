package extract

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

// PlainText reads text and markdown files verbatim.
type PlainText struct{}

// NewPlainText creates a plain-text extractor.
func NewPlainText() *PlainText { return &PlainText{} }

// CanHandle accepts text/plain and text/markdown.
func (p *PlainText) CanHandle(contentType string) bool {
	ct := normalize(contentType)
	return strings.Contains(ct, ContentTypePlain) || strings.Contains(ct, ContentTypeMarkdown)
}

// ExtractText returns the file as a string. Input must be valid UTF-8.
func (p *PlainText) ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("decode %s: invalid UTF-8: %w", fileName, domain.ErrExtractionFailed)
	}
	return string(data), nil
}

// Markdown strips common markdown syntax so only prose reaches the chunker.
type Markdown struct{}

// NewMarkdown creates a markdown extractor.
func NewMarkdown() *Markdown { return &Markdown{} }

// CanHandle accepts text/markdown and text/x-markdown.
func (m *Markdown) CanHandle(contentType string) bool {
	ct := normalize(contentType)
	return ct == ContentTypeMarkdown || ct == "text/x-markdown"
}

// ExtractText returns the file with markdown formatting removed.
func (m *Markdown) ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("decode %s: invalid UTF-8: %w", fileName, domain.ErrExtractionFailed)
	}
	return StripMarkdown(string(data)), nil
}

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode = regexp.MustCompile("`([^`]+)`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|__|\*)`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s*`)
	mdRule       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdBullet     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumbered   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	mdBlankLines = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown removes markdown syntax. Fenced code and images are dropped,
// links and inline code keep their text.
func StripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "")
	content = mdNumbered.ReplaceAllString(content, "")
	content = mdEmphasis.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdBlankLines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
