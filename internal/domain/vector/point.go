// Package vector holds the vector index projection of document chunks.
package vector

import "strconv"

// Payload keys stored alongside every vector so a hit is self-describing.
const (
	PayloadText       = "text"
	PayloadDocumentID = "documentId"
	PayloadFileName   = "fileName"
	PayloadChunkIndex = "chunkIndex"
)

// DefaultCollection is the single collection holding chunks of all documents.
const DefaultCollection = "documents"

// Point is a vector keyed by chunk id with a flat string payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// Hit is one nearest-neighbor search result. Higher Score means more relevant.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]string
}

// ChunkPayload builds the payload for a chunk point.
func ChunkPayload(text, documentID, fileName string, chunkIndex int) map[string]string {
	return map[string]string{
		PayloadText:       text,
		PayloadDocumentID: documentID,
		PayloadFileName:   fileName,
		PayloadChunkIndex: strconv.Itoa(chunkIndex),
	}
}

// Text returns the chunk text carried by the hit.
func (h Hit) Text() string { return h.Payload[PayloadText] }

// DocumentID returns the owning document id carried by the hit.
func (h Hit) DocumentID() string { return h.Payload[PayloadDocumentID] }
