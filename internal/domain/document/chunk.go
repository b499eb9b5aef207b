package document

import "time"

// Chunk is one retrievable text segment of a document.
// Its ID is shared with the vector index entry so both stores can be cross-referenced.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Index      int
	CreatedAt  time.Time
}

// WithChunks pairs a document with its ordered chunks.
type WithChunks struct {
	Document Document
	Chunks   []Chunk
}
