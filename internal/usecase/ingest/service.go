// Package ingest drives a file through extraction, chunking, embedding and
// indexing while keeping the document lifecycle in the document store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/metrics"
)

var tracer = otel.Tracer("github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest")

// Request describes one uploaded file.
type Request struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

// Result is the outcome of an ingestion.
type Result struct {
	DocumentID string
	FileName   string
	ChunkCount int
	Status     document.Status
}

// Config tunes the pipeline.
type Config struct {
	Collection string
	VectorSize int
	// Workers bounds concurrent embedding calls per ingestion; 1 embeds sequentially.
	Workers int
	// Compensate deletes whatever a failed ingestion already wrote: chunk
	// rows first, then vectors. Off by default; Reconcile repairs later.
	Compensate bool
}

// stage records how far a run got before failing.
type stage int

const (
	stageNone    stage = iota
	stageVectors       // the index may hold vectors of the document
	stageChunks        // chunk rows were written as well
)

// Service runs ingestions. Safe for concurrent use.
type Service struct {
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	index     VectorIndex
	store     DocumentStore
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an ingestion service.
func New(
	extractor Extractor, chunker Chunker, embedder Embedder,
	index VectorIndex, store DocumentStore, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.Collection == "" {
		cfg.Collection = vector.DefaultCollection
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest stores a Processing document, then extracts, chunks, embeds and
// indexes the file. On success the document is Indexed. On any failure the
// document is marked Failed and the error is returned together with a Result
// carrying the failed document's id. An empty file is rejected with
// domain.ErrInvalidInput before any document is created.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "ingest.Ingest", trace.WithAttributes(
		attribute.String("aidoc.file_name", req.FileName),
		attribute.Int64("aidoc.size_bytes", req.Size),
	))
	defer span.End()
	start := time.Now()

	doc, err := document.New(req.FileName, req.ContentType, req.Size, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("new document: %w", err)
	}
	if req.Size == 0 {
		return Result{FileName: doc.FileName()}, fmt.Errorf("file %s is empty: %w", doc.FileName(), domain.ErrInvalidInput)
	}
	if doc, err = doc.StartProcessing(); err != nil {
		return Result{}, fmt.Errorf("start processing: %w", err)
	}
	if doc, err = s.store.Create(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create document")
		return Result{}, fmt.Errorf("create document: %w", err)
	}
	span.SetAttributes(attribute.String("aidoc.document_id", doc.ID()))

	log := s.logger.With(zap.String("document_id", doc.ID()), zap.String("file_name", doc.FileName()))
	log.Info("Ingestion started", zap.Int64("size_bytes", req.Size))

	indexed, reached, err := s.run(ctx, doc, req.Reader)
	if err != nil {
		err = s.fail(ctx, doc, reached, err, log)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingestion failed")
		metrics.IngestionsTotal.WithLabelValues("failed").Inc()
		metrics.IngestionDuration.Observe(time.Since(start).Seconds())
		return Result{
			DocumentID: doc.ID(),
			FileName:   doc.FileName(),
			Status:     document.StatusFailed,
		}, err
	}

	span.SetAttributes(attribute.Int("aidoc.chunk_count", indexed.ChunkCount()))
	metrics.IngestionsTotal.WithLabelValues("indexed").Inc()
	metrics.IngestionDuration.Observe(time.Since(start).Seconds())
	metrics.ChunksPerDocument.Observe(float64(indexed.ChunkCount()))
	log.Info("Ingestion completed",
		zap.Int("chunks", indexed.ChunkCount()),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{
		DocumentID: indexed.ID(),
		FileName:   indexed.FileName(),
		ChunkCount: indexed.ChunkCount(),
		Status:     indexed.Status(),
	}, nil
}

// run executes the pipeline and reports the furthest stage that wrote data.
func (s *Service) run(ctx context.Context, doc document.Document, r io.Reader) (document.Document, stage, error) {
	text, err := s.extractor.ExtractText(ctx, r, doc.FileName())
	if err != nil {
		return document.Document{}, stageNone, fmt.Errorf("extract text: %w", err)
	}

	pieces := s.chunker.Chunk(text)
	if len(pieces) == 0 {
		s.logger.Warn("Document produced no chunks", zap.String("document_id", doc.ID()))
	}

	if err := s.index.EnsureCollection(ctx, s.cfg.Collection, s.cfg.VectorSize); err != nil {
		return document.Document{}, stageNone, fmt.Errorf("ensure collection: %w", err)
	}

	vectors, err := s.embedAll(ctx, pieces)
	if err != nil {
		return document.Document{}, stageVectors, err
	}

	now := s.now()
	points := make([]vector.Point, len(pieces))
	chunks := make([]document.Chunk, len(pieces))
	for i, text := range pieces {
		id := uuid.NewString()
		points[i] = vector.Point{
			ID:      id,
			Vector:  vectors[i],
			Payload: vector.ChunkPayload(text, doc.ID(), doc.FileName(), i),
		}
		chunks[i] = document.Chunk{
			ID:         id,
			DocumentID: doc.ID(),
			Text:       text,
			Index:      i,
			CreatedAt:  now.UTC(),
		}
	}

	// Vectors go first: a crash in between leaves orphaned vectors, never
	// chunk records pointing at missing vectors.
	reached := stageVectors
	if len(points) > 0 {
		if err := s.index.Upsert(ctx, s.cfg.Collection, points); err != nil {
			return document.Document{}, reached, fmt.Errorf("upsert vectors: %w", err)
		}
		// A failed batch may still have left rows behind in stores without
		// transactions, so chunk cleanup is due from here on.
		reached = stageChunks
		if err := s.store.AddChunks(ctx, chunks); err != nil {
			return document.Document{}, reached, fmt.Errorf("add chunks: %w", err)
		}
	}

	indexed, err := doc.MarkIndexed(len(pieces), now)
	if err != nil {
		return document.Document{}, reached, fmt.Errorf("mark indexed: %w", err)
	}
	if indexed, err = s.store.Update(ctx, indexed); err != nil {
		return document.Document{}, reached, fmt.Errorf("update document: %w", err)
	}
	return indexed, reached, nil
}

// fail runs the compensating cleanup when enabled, then marks doc Failed.
// Chunk rows are removed before vectors so no chunk ever outlives its
// vector; if that step fails the vectors stay. Cleanup runs on a context
// detached from cancellation and its errors are joined after cause.
func (s *Service) fail(ctx context.Context, doc document.Document, reached stage, cause error, log *zap.Logger) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}

	if s.cfg.Compensate && reached > stageNone {
		if err := s.compensate(ctx, doc.ID(), reached); err != nil {
			metrics.CompensationsTotal.WithLabelValues("ingest", "error").Inc()
			log.Error("Compensating cleanup failed", zap.Error(err))
			errs = append(errs, err)
		} else {
			metrics.CompensationsTotal.WithLabelValues("ingest", "ok").Inc()
		}
	}

	failed, err := doc.MarkFailed()
	if err == nil {
		_, err = s.store.Update(ctx, failed)
	}
	if err != nil {
		log.Error("Failed to mark document failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("mark failed: %w", err))
	}

	log.Warn("Ingestion failed", zap.Error(cause))
	return errors.Join(errs...)
}

func (s *Service) compensate(ctx context.Context, documentID string, reached stage) error {
	if reached >= stageChunks {
		if err := s.store.DeleteChunks(ctx, documentID); err != nil {
			return fmt.Errorf("compensating chunk delete: %w", err)
		}
	}
	if err := s.index.DeleteByDocumentID(ctx, s.cfg.Collection, documentID); err != nil {
		return fmt.Errorf("compensating delete: %w", err)
	}
	return nil
}
