package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

func mustNew(t *testing.T, opts ...Option) *Chunker {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNew_Defaults(t *testing.T) {
	c := mustNew(t)
	if c.Size() != DefaultSize || c.Overlap() != DefaultOverlap {
		t.Errorf("expected %d/%d, got %d/%d", DefaultSize, DefaultOverlap, c.Size(), c.Overlap())
	}
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero size", []Option{WithSize(0)}},
		{"negative overlap", []Option{WithOverlap(-1)}},
		{"overlap equals size", []Option{WithSize(10), WithOverlap(10)}},
		{"overlap exceeds size", []Option{WithSize(10), WithOverlap(20)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := mustNew(t)
	for _, in := range []string{"", "   ", "\n\r\n\t  \n"} {
		if got := c.Chunk(in); len(got) != 0 {
			t.Errorf("Chunk(%q) = %v, want none", in, got)
		}
	}
}

func TestChunk_ShortInputSingleChunk(t *testing.T) {
	c := mustNew(t)
	got := c.Chunk("  Hello world.\n\n  Second line here.  ")
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(got), got)
	}
	if got[0] != "Hello world. Second line here." {
		t.Errorf("unexpected chunk %q", got[0])
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("  a  \n\n b \r\n\r\n c ")
	if got != "a b c" {
		t.Errorf("Normalize = %q, want %q", got, "a b c")
	}
}

func TestChunk_CutsAfterSentence(t *testing.T) {
	c := mustNew(t, WithSize(20), WithOverlap(5))
	got := c.Chunk("The cat sat. The dog ran far away today.")
	if len(got) == 0 || got[0] != "The cat sat." {
		t.Fatalf("expected first chunk to end at the sentence, got %v", got)
	}
}

func TestChunk_CutsAtWord(t *testing.T) {
	c := mustNew(t, WithSize(20), WithOverlap(0))
	got := c.Chunk("alpha beta gamma delta epsilon zeta eta theta")
	want := []string{"alpha beta gamma", "delta epsilon zeta", "eta theta"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunk_WordBoundaryIsSpaceOnly(t *testing.T) {
	c := mustNew(t, WithSize(12), WithOverlap(0))
	got := c.Chunk("alpha beta\tgamma delta")
	want := []string{"alpha", "beta\tgamma", "delta"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunk_NoBoundaryCutsMidWord(t *testing.T) {
	c := mustNew(t, WithSize(10), WithOverlap(2))
	text := strings.Repeat("x", 25)
	got := c.Chunk(text)
	lengths := []int{10, 10, 9}
	if len(got) != len(lengths) {
		t.Fatalf("expected %d chunks, got %d: %q", len(lengths), len(got), got)
	}
	for i, l := range lengths {
		if len(got[i]) != l {
			t.Errorf("chunk %d length = %d, want %d", i, len(got[i]), l)
		}
	}
}

func TestChunk_CountsRunes(t *testing.T) {
	c := mustNew(t, WithSize(10), WithOverlap(0))
	got := c.Chunk(strings.Repeat("ü", 15))
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if n := utf8.RuneCountInString(got[0]); n != 10 {
		t.Errorf("first chunk has %d runes, want 10", n)
	}
	if n := utf8.RuneCountInString(got[1]); n != 5 {
		t.Errorf("second chunk has %d runes, want 5", n)
	}
}

func TestChunk_CoverageAndBounds(t *testing.T) {
	c := mustNew(t)
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit.\n", 120)
	normalized := Normalize(text)
	n := utf8.RuneCountInString(normalized)

	got := c.Chunk(text)
	if len(got) == 0 {
		t.Fatal("expected chunks")
	}

	// A sentence cut can pull the window end back by up to sentenceWindow.
	stride := DefaultSize - sentenceWindow - DefaultOverlap
	maxIterations := (n+stride-1)/stride + 1
	if len(got) > maxIterations {
		t.Errorf("expected at most %d chunks, got %d", maxIterations, len(got))
	}
	for i, chunk := range got {
		if chunk == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if utf8.RuneCountInString(chunk) > DefaultSize {
			t.Errorf("chunk %d exceeds size", i)
		}
		if !strings.Contains(normalized, chunk) {
			t.Errorf("chunk %d is not a span of the normalized text", i)
		}
	}
	if !strings.HasPrefix(normalized, got[0]) {
		t.Error("first chunk must start the text")
	}
	if !strings.HasSuffix(normalized, got[len(got)-1]) {
		t.Error("last chunk must end the text")
	}
}

func TestChunk_TerminatesWithoutBoundaries(t *testing.T) {
	c := mustNew(t)
	n := 5000
	got := c.Chunk(strings.Repeat("x", n))
	stride := DefaultSize - DefaultOverlap
	if maxIterations := (n+stride-1)/stride + 1; len(got) > maxIterations {
		t.Errorf("expected at most %d chunks, got %d", maxIterations, len(got))
	}
	if last := got[len(got)-1]; len(last) != DefaultSize {
		t.Errorf("last chunk length = %d, want %d", len(last), DefaultSize)
	}
}

func TestAll_StopsEarly(t *testing.T) {
	c := mustNew(t, WithSize(10), WithOverlap(0))
	seen := 0
	for range c.All(strings.Repeat("y", 100)) {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("expected iteration to stop after 1, got %d", seen)
	}
}
