package aidoc

import "time"

// Status is the ingestion state of a document.
type Status string

// Status constants.
const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusIndexed    Status = "Indexed"
	StatusFailed     Status = "Failed"
)

// Document is the metadata record of an ingested file.
type Document struct {
	ID          string
	FileName    string
	ContentType string
	SizeBytes   int64
	ChunkCount  int
	Status      Status
	CreatedAt   time.Time
	ProcessedAt time.Time // zero until the document is Indexed or Failed
	Version     int
}

// Chunk is a stored text segment of a document.
type Chunk struct {
	ID    string
	Index int
	Text  string
}

// DocumentDetail is a document with its chunks in order.
type DocumentDetail struct {
	Document
	Chunks []Chunk
}

// IngestResult is the outcome of one ingestion. DocumentID is set even when
// the ingestion failed after the document was recorded.
type IngestResult struct {
	DocumentID string
	FileName   string
	ChunkCount int
	Status     Status
}

// SearchHit is a single retrieved chunk.
type SearchHit struct {
	ChunkID    string
	DocumentID string
	FileName   string
	Text       string
	Score      float64
}

// SearchResult holds ranked hits and their texts joined as one context.
type SearchResult struct {
	Hits            []SearchHit
	CombinedContext string
}

// Answer is a generated answer with the chunks it was grounded on.
type Answer struct {
	Text     string
	Question string
	Sources  []SearchHit
}

// ReconcileReport summarizes one repair pass over the index.
type ReconcileReport struct {
	Scanned    int
	Cleaned    []string // Failed documents whose chunks and vectors were removed
	Mismatched []string // Indexed documents with inconsistent chunk records, left as is
	Errors     []string
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // component -> "ok"/"error"
}
