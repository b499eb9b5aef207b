// Package chi exposes the ingestion and retrieval pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/extract"
	healthuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/health"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

// multipartOverhead is the slack allowed above the file limit for form framing.
const multipartOverhead = 1 << 20

// Ingester runs uploads through the pipeline and repairs the index.
type Ingester interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	Reconcile(ctx context.Context) (ingestuc.ReconcileReport, error)
}

// Retriever answers searches and questions.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (retrievaluc.SearchResult, error)
	Ask(ctx context.Context, question string, topK int) (retrievaluc.AskResult, error)
}

// Documents reads and deletes stored documents.
type Documents interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.WithChunks, error)
	Delete(ctx context.Context, id string) error
}

// HealthReporter reports component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
	VectorIndex(ctx context.Context) bool
}

// Config holds transport-level settings.
type Config struct {
	MaxUploadBytes int64
	EmbeddingModel string
	// VectorService names the vector index driver in /health/vector.
	VectorService string
}

// Server serves the document API.
type Server struct {
	ingest        Ingester
	retrieval     Retriever
	documents     Documents
	health        HealthReporter
	embedder      domain.Embedder
	cfg           Config
	logger        *zap.Logger
	errorHandlers []errorHandler
	now           func() time.Time
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest Ingester,
	retrieval Retriever,
	documents Documents,
	health HealthReporter,
	embedder domain.Embedder,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingest:        ingest,
		retrieval:     retrieval,
		documents:     documents,
		health:        health,
		embedder:      embedder,
		cfg:           cfg,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
		now:           time.Now,
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Route("/documents", func(r gochi.Router) {
		r.Get("/", s.ListDocuments)
		r.Post("/upload", s.UploadDocument)
		r.Post("/search", s.SearchDocuments)
		r.Post("/ask", s.AskDocuments)
		r.Post("/reconcile", s.Reconcile)
		r.Get("/{id}", s.GetDocument)
		r.Delete("/{id}", s.DeleteDocument)
	})
	r.Post("/embed/test", s.EmbedTest)
	r.Get("/health", s.HealthCheck)
	r.Get("/health/vector", s.VectorHealth)
	r.Get("/metrics", s.Metrics)
}

// UploadDocument handles POST /documents/upload.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		if r.ContentLength > s.cfg.MaxUploadBytes+multipartOverhead {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, s.tooLargeMessage())
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, s.tooLargeMessage())
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, CodeBadRequest, "No file provided.")
		default:
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		}
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "No file provided.")
		return
	}
	if s.cfg.MaxUploadBytes > 0 && header.Size > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, s.tooLargeMessage())
		return
	}

	contentType, ok := uploadContentType(header)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeUnsupportedFormat,
			"Unsupported file type: "+contentType+". Supported: PDF, TXT, MD")
		return
	}

	s.logger.Info("Upload request",
		zap.String("file_name", header.Filename),
		zap.Int64("size", header.Size),
		zap.String("content_type", contentType),
	)

	res, err := s.ingest.Ingest(r.Context(), ingestuc.Request{
		Reader:      file,
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		DocumentID: res.DocumentID,
		FileName:   res.FileName,
		ChunkCount: res.ChunkCount,
		Status:     res.Status.String(),
	})
}

// SearchDocuments handles POST /documents/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if code, msg, ok := decodeAndValidate(r, &req, func() { req.Query = strings.TrimSpace(req.Query) }); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	res, err := s.retrieval.Search(r.Context(), req.Query, topKOrDefault(req.TopK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Chunks:          chunksToResponse(res.Chunks),
		CombinedContext: res.CombinedContext,
	})
}

// AskDocuments handles POST /documents/ask.
func (s *Server) AskDocuments(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if code, msg, ok := decodeAndValidate(r, &req, func() { req.Question = strings.TrimSpace(req.Question) }); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	res, err := s.retrieval.Ask(r.Context(), req.Question, topKOrDefault(req.TopK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:   res.Answer,
		Question: res.Question,
		Sources:  chunksToResponse(res.Sources),
	})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, documentListResponse{Items: items, Count: len(items)})
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	wc, err := s.documents.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(wc.Document.Version())))
	writeJSON(w, http.StatusOK, documentDetailToResponse(wc))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile handles POST /documents/reconcile.
func (s *Server) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := s.ingest.Reconcile(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileToResponse(rep))
}

// EmbedTest handles POST /embed/test.
func (s *Server) EmbedTest(w http.ResponseWriter, r *http.Request) {
	var req embedTestRequest
	if code, msg, ok := decodeAndValidate(r, &req, func() { req.Text = strings.TrimSpace(req.Text) }); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	res, err := s.embedder.Embed(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, embedTestResponse{
		VectorLength: len(res.Embedding),
		Model:        s.cfg.EmbeddingModel,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// VectorHealth handles GET /health/vector.
func (s *Server) VectorHealth(w http.ResponseWriter, r *http.Request) {
	resp := vectorHealthResponse{Status: "healthy", Service: s.cfg.VectorService, Timestamp: s.now().UTC()}
	status := http.StatusOK
	if !s.health.VectorIndex(r.Context()) {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) tooLargeMessage() string {
	return "File exceeds the upload limit of " + strconv.FormatInt(s.cfg.MaxUploadBytes, 10) + " bytes."
}

// uploadContentType resolves the declared part type. A generic octet-stream
// (or missing) type falls back to the file extension when it is one we extract.
func uploadContentType(h *multipart.FileHeader) (string, bool) {
	declared := h.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(declared)
	if declared == "" || err != nil || mediaType == "application/octet-stream" {
		if extract.HasKnownExtension(h.Filename) {
			return extract.ContentTypeFor(h.Filename), true
		}
		if declared == "" {
			declared = "unknown"
		}
		return declared, false
	}
	if !extract.IsSupported(mediaType) {
		return declared, false
	}
	return mediaType, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
