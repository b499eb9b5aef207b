// Package chunker splits extracted document text into overlapping,
// boundary-aware segments.
package chunker

import (
	"fmt"
	"iter"
	"strings"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 600
	// DefaultOverlap is the number of characters shared by adjacent chunks.
	DefaultOverlap = 100

	sentenceWindow = 100
	wordWindow     = 50
)

// Chunker is a sliding-window text segmenter. Safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the target chunk length in characters.
func WithSize(n int) Option {
	return func(c *Chunker) { c.size = n }
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(n int) Option {
	return func(c *Chunker) { c.overlap = n }
}

// New creates a Chunker. Overlap must be non-negative and smaller than size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", c.size, domain.ErrInvalidInput)
	}
	if c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d: %w", c.size, c.overlap, domain.ErrInvalidInput)
	}
	return c, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk collects all segments of text.
func (c *Chunker) Chunk(text string) []string {
	var out []string
	for s := range c.All(text) {
		out = append(out, s)
	}
	return out
}

// All yields the segments of text in order. Empty or whitespace-only input yields nothing.
func (c *Chunker) All(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		r := []rune(Normalize(text))
		n := len(r)
		start := 0
		for start < n {
			end := min(start+c.size, n)
			if end < n {
				end = boundary(r, start, end)
			}

			chunk := strings.TrimSpace(string(r[start:end]))
			if chunk != "" && !yield(chunk) {
				return
			}
			// The window reached the end; stepping back by overlap would only
			// re-emit suffixes of the last chunk.
			if end == n {
				return
			}

			start = max(start+1, end-c.overlap)
		}
	}
}

// Normalize trims every line, drops empty ones and joins the rest with single spaces.
func Normalize(text string) string {
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, " ")
}

// boundary moves a window end back to the nearest sentence terminator, or
// failing that to the nearest space. The raw end is kept when neither is found.
func boundary(r []rune, start, end int) int {
	if sb := lastIndex(r, end, min(sentenceWindow, end-start), isSentenceEnd); sb > start {
		return sb + 1
	}
	if wb := lastIndex(r, end, min(wordWindow, end-start), isSpace); wb > start {
		return wb
	}
	return end
}

// isSpace matches the plain space only; tabs inside a line are not word breaks.
func isSpace(r rune) bool { return r == ' ' }

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}

// lastIndex scans r[from-count+1 .. from] backwards and returns the first
// position matching fn, or -1.
func lastIndex(r []rune, from, count int, fn func(rune) bool) int {
	for i := from; i > from-count; i-- {
		if i >= 0 && i < len(r) && fn(r[i]) {
			return i
		}
	}
	return -1
}
