package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  *int   `json:"topK" validate:"omitempty,min=1,max=50"`
}

type askRequest struct {
	Question string `json:"question" validate:"required"`
	TopK     *int   `json:"topK" validate:"omitempty,min=1,max=50"`
}

type embedTestRequest struct {
	Text string `json:"text" validate:"required"`
}

type uploadResponse struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	ChunkCount int    `json:"chunkCount"`
	Status     string `json:"status"`
}

type chunkResponse struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	FileName   string  `json:"fileName,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type searchResponse struct {
	Chunks          []chunkResponse `json:"chunks"`
	CombinedContext string          `json:"combinedContext"`
}

type askResponse struct {
	Answer   string          `json:"answer"`
	Question string          `json:"question"`
	Sources  []chunkResponse `json:"sources"`
}

type documentResponse struct {
	ID          string     `json:"id"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	SizeBytes   int64      `json:"sizeBytes"`
	ChunkCount  int        `json:"chunkCount"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	Version     int        `json:"version"`
}

type storedChunkResponse struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type documentDetailResponse struct {
	documentResponse
	Chunks []storedChunkResponse `json:"chunks"`
}

type documentListResponse struct {
	Items []documentResponse `json:"items"`
	Count int                `json:"count"`
}

type reconcileResponse struct {
	Scanned    int      `json:"scanned"`
	Cleaned    []string `json:"cleaned"`
	Mismatched []string `json:"mismatched"`
	Errors     []string `json:"errors"`
}

type embedTestResponse struct {
	VectorLength int    `json:"vectorLength"`
	Model        string `json:"model"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type vectorHealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// decodeAndValidate reads a JSON body into dst, applies normalize and runs
// struct validation. The returned message is safe to show to the client.
func decodeAndValidate(r *http.Request, dst any, normalize func()) (code, message string, ok bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return CodeBadRequest, "Invalid request body: " + err.Error(), false
	}
	if normalize != nil {
		normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return CodeValidationFailed, validationMessage(err), false
	}
	return "", "", true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			parts = append(parts, e.Field()+" is required")
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s must be between 1 and 50", e.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on '%s' tag", e.Field(), e.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func topKOrDefault(p *int) int {
	if p == nil {
		return retrievaluc.DefaultTopK
	}
	return *p
}

func chunksToResponse(chunks []retrievaluc.Chunk) []chunkResponse {
	out := make([]chunkResponse, len(chunks))
	for i, c := range chunks {
		out[i] = chunkResponse{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			FileName:   c.FileName,
			Text:       c.Text,
			Score:      c.Score,
		}
	}
	return out
}

func documentToResponse(d domdoc.Document) documentResponse {
	resp := documentResponse{
		ID:          d.ID(),
		FileName:    d.FileName(),
		ContentType: d.ContentType(),
		SizeBytes:   d.SizeBytes(),
		ChunkCount:  d.ChunkCount(),
		Status:      d.Status().String(),
		CreatedAt:   d.CreatedAt(),
		Version:     d.Version(),
	}
	if at := d.ProcessedAt(); !at.IsZero() {
		resp.ProcessedAt = &at
	}
	return resp
}

func documentDetailToResponse(wc domdoc.WithChunks) documentDetailResponse {
	chunks := make([]storedChunkResponse, len(wc.Chunks))
	for i, c := range wc.Chunks {
		chunks[i] = storedChunkResponse{ID: c.ID, Index: c.Index, Text: c.Text, CreatedAt: c.CreatedAt}
	}
	return documentDetailResponse{documentResponse: documentToResponse(wc.Document), Chunks: chunks}
}

func reconcileToResponse(rep ingestuc.ReconcileReport) reconcileResponse {
	resp := reconcileResponse{Scanned: rep.Scanned, Cleaned: rep.Cleaned, Mismatched: rep.Mismatched, Errors: rep.Errors}
	if resp.Cleaned == nil {
		resp.Cleaned = []string{}
	}
	if resp.Mismatched == nil {
		resp.Mismatched = []string{}
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	return resp
}
