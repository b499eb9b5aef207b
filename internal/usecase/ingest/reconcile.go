package ingest

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/metrics"
)

// ReconcileReport summarizes one repair pass.
type ReconcileReport struct {
	Scanned int
	// Cleaned lists Failed documents whose chunks and vectors were removed.
	Cleaned []string
	// Mismatched lists Indexed documents whose stored chunk count differs
	// from the recorded one. They are reported, never modified.
	Mismatched []string
	Errors     []string
}

// Reconcile removes the chunk rows and vectors left behind by Failed
// documents and reports Indexed documents whose chunk records disagree with
// their recorded count. Processing documents are left alone since they may
// still be in flight. Deletes are idempotent, so repeated passes are safe.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	ctx, span := tracer.Start(ctx, "ingest.Reconcile")
	defer span.End()

	docs, err := s.store.GetAll(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("list documents: %w", err)
	}

	report := ReconcileReport{Scanned: len(docs), Cleaned: []string{}, Mismatched: []string{}, Errors: []string{}}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reconcile: %w", err)
		}

		switch doc.Status() {
		case document.StatusFailed:
			if err := s.compensate(ctx, doc.ID(), stageChunks); err != nil {
				metrics.CompensationsTotal.WithLabelValues("reconcile", "error").Inc()
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", doc.ID(), err))
				continue
			}
			metrics.CompensationsTotal.WithLabelValues("reconcile", "ok").Inc()
			report.Cleaned = append(report.Cleaned, doc.ID())
		case document.StatusIndexed:
			chunks, err := s.store.Chunks(ctx, doc.ID())
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: load chunks: %v", doc.ID(), err))
				continue
			}
			if len(chunks) != doc.ChunkCount() {
				s.logger.Warn("Indexed document has inconsistent chunk records",
					zap.String("document_id", doc.ID()),
					zap.Int("recorded", doc.ChunkCount()),
					zap.Int("stored", len(chunks)),
				)
				report.Mismatched = append(report.Mismatched, doc.ID())
			}
		}
	}

	span.SetAttributes(
		attribute.Int("aidoc.scanned", report.Scanned),
		attribute.Int("aidoc.cleaned", len(report.Cleaned)),
		attribute.Int("aidoc.mismatched", len(report.Mismatched)),
	)
	s.logger.Info("Reconcile finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("cleaned", len(report.Cleaned)),
		zap.Int("mismatched", len(report.Mismatched)),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}
