package ingest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

// embedAll returns one vector per text, in input order. Cancellation is
// checked before every dispatch; the first error stops further dispatches.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	if s.cfg.Workers == 1 {
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("embed chunk %d: %w", i, err)
			}
			v, err := s.embedOne(ctx, i, text)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, text := range texts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			v, err := s.embedOne(gctx, i, text)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	return out, nil
}

func (s *Service) embedOne(ctx context.Context, i int, text string) ([]float32, error) {
	res, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed chunk %d: %w", i, err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed chunk %d: %w: %w", i, domain.ErrEmbeddingProviderError, domain.ErrEmptyEmbedding)
	}
	return res.Embedding, nil
}
