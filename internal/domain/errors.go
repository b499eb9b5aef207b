package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a request rejected before any processing (empty query, empty file).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat signals that no extractor accepts the file type.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrExtractionFailed signals unreadable or corrupt input content.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidTransition signals a status change that would move a document backwards.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrBackendUnavailable signals a failed remote call (embedding, vector index, answer model).
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = fmt.Errorf("embedding provider error: %w", ErrBackendUnavailable)
	// ErrAnswerProviderError signals a generative model failure.
	ErrAnswerProviderError = fmt.Errorf("answer provider error: %w", ErrBackendUnavailable)
	// ErrVectorIndexError signals a vector index failure.
	ErrVectorIndexError = fmt.Errorf("vector index error: %w", ErrBackendUnavailable)
	// ErrEmptyEmbedding signals a provider response without a vector.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrRevisionConflict signals an optimistic locking conflict.
	ErrRevisionConflict = errors.New("revision conflict")
)

// RevisionConflictError wraps ErrRevisionConflict with the currently stored version.
type RevisionConflictError struct {
	CurrentVersion int
}

func (e *RevisionConflictError) Error() string {
	return fmt.Sprintf("%s: current version is %d", ErrRevisionConflict.Error(), e.CurrentVersion)
}

func (e *RevisionConflictError) Unwrap() error { return ErrRevisionConflict }

// NewRevisionConflict creates a revision conflict error.
func NewRevisionConflict(currentVersion int) error {
	return &RevisionConflictError{CurrentVersion: currentVersion}
}
