package aidoc

import "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrUnsupportedFormat      = domain.ErrUnsupportedFormat
	ErrExtractionFailed       = domain.ErrExtractionFailed
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrAnswerProviderError    = domain.ErrAnswerProviderError
	ErrVectorIndexError       = domain.ErrVectorIndexError
)
