package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

// MaxFileNameLength bounds stored file names.
const MaxFileNameLength = 512

// Document is the document aggregate (immutable value object).
// Every lifecycle step returns a new value; the store owns the version counter.
type Document struct {
	id          string
	fileName    string
	contentType string
	sizeBytes   int64
	chunkCount  int
	createdAt   time.Time
	processedAt time.Time
	status      Status
	version     int
}

// New validates and creates a Pending document with a fresh id.
func New(fileName, contentType string, sizeBytes int64, now time.Time) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("file name is required: %w", domain.ErrInvalidInput)
	}
	if len(fileName) > MaxFileNameLength {
		return Document{}, fmt.Errorf("file name too long (max %d): %w", MaxFileNameLength, domain.ErrInvalidInput)
	}
	if sizeBytes < 0 {
		return Document{}, fmt.Errorf("negative file size: %w", domain.ErrInvalidInput)
	}

	return Document{
		id:          uuid.NewString(),
		fileName:    fileName,
		contentType: contentType,
		sizeBytes:   sizeBytes,
		createdAt:   now.UTC(),
		status:      StatusPending,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, fileName, contentType string, sizeBytes int64, chunkCount int,
	createdAt, processedAt time.Time, status Status, version int,
) Document {
	return Document{
		id: id, fileName: fileName, contentType: contentType, sizeBytes: sizeBytes,
		chunkCount: chunkCount, createdAt: createdAt, processedAt: processedAt,
		status: status, version: version,
	}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// FileName returns the original file name.
func (d Document) FileName() string { return d.fileName }

// ContentType returns the declared content type.
func (d Document) ContentType() string { return d.contentType }

// SizeBytes returns the uploaded size.
func (d Document) SizeBytes() int64 { return d.sizeBytes }

// ChunkCount returns the number of indexed chunks.
func (d Document) ChunkCount() int { return d.chunkCount }

// CreatedAt returns the creation timestamp.
func (d Document) CreatedAt() time.Time { return d.createdAt }

// ProcessedAt returns the indexing timestamp; zero unless Indexed.
func (d Document) ProcessedAt() time.Time { return d.processedAt }

// Status returns the lifecycle status.
func (d Document) Status() Status { return d.status }

// Version returns the optimistic concurrency token (0 = not yet stored).
func (d Document) Version() int { return d.version }

// WithVersion returns a copy carrying the given store version.
func (d Document) WithVersion(v int) Document {
	d.version = v
	return d
}

// StartProcessing moves the document into Processing.
func (d Document) StartProcessing() (Document, error) {
	return d.transition(StatusProcessing)
}

// MarkIndexed records a successful ingestion.
func (d Document) MarkIndexed(chunkCount int, at time.Time) (Document, error) {
	next, err := d.transition(StatusIndexed)
	if err != nil {
		return Document{}, err
	}
	next.chunkCount = chunkCount
	next.processedAt = at.UTC()
	return next, nil
}

// MarkFailed records an aborted ingestion.
func (d Document) MarkFailed() (Document, error) {
	return d.transition(StatusFailed)
}

func (d Document) transition(next Status) (Document, error) {
	if !d.status.CanTransitionTo(next) {
		return Document{}, fmt.Errorf("%s -> %s: %w", d.status, next, domain.ErrInvalidTransition)
	}
	d.status = next
	return d, nil
}
