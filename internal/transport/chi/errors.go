package chi

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

// Error codes carried in {code, message} bodies.
const (
	CodeBadRequest         = "bad_request"
	CodeValidationFailed   = "validation_failed"
	CodeUnsupportedFormat  = "unsupported_format"
	CodePayloadTooLarge    = "payload_too_large"
	CodeDocumentNotFound   = "document_not_found"
	CodeRevisionConflict   = "revision_conflict"
	CodeInvalidTransition  = "invalid_transition"
	CodeExtractionFailed   = "extraction_failed"
	CodeEmbeddingProvider  = "embedding_provider_error"
	CodeAnswerProvider     = "answer_provider_error"
	CodeVectorIndex        = "vector_index_error"
	CodeBackendUnavailable = "backend_unavailable"
	CodeUnauthorized       = "unauthorized"
	CodeRateLimited        = "rate_limited"
	CodeInternalError      = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// defaultErrorHandlers is matched in order; provider-specific sentinels come
// before ErrBackendUnavailable, which they all wrap.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		revisionConflictHandler,
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, CodeUnsupportedFormat),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusUnprocessableEntity, CodeExtractionFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(domain.ErrAnswerProviderError, http.StatusBadGateway, CodeAnswerProvider),
		sentinelHandler(domain.ErrVectorIndexError, http.StatusBadGateway, CodeVectorIndex),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusBadGateway, CodeBackendUnavailable),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRevisionConflict,
		domain.ErrInvalidInput,
		domain.ErrUnsupportedFormat,
		domain.ErrDocumentNotFound,
		domain.ErrInvalidTransition,
		domain.ErrExtractionFailed,
		domain.ErrEmbeddingProviderError,
		domain.ErrAnswerProviderError,
		domain.ErrVectorIndexError,
		domain.ErrBackendUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// revisionConflictHandler answers 409 with the stored version as ETag.
func revisionConflictHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRevisionConflict) {
		return false
	}
	var rce *domain.RevisionConflictError
	if errors.As(err, &rce) {
		w.Header().Set("ETag", strconv.Quote(strconv.Itoa(rce.CurrentVersion)))
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":           CodeRevisionConflict,
			"message":        msg,
			"currentVersion": rce.CurrentVersion,
		})
		return true
	}
	writeError(w, http.StatusConflict, CodeRevisionConflict, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
