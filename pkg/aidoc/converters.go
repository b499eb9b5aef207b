package aidoc

import (
	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

func fromDocument(d domdoc.Document) Document {
	return Document{
		ID:          d.ID(),
		FileName:    d.FileName(),
		ContentType: d.ContentType(),
		SizeBytes:   d.SizeBytes(),
		ChunkCount:  d.ChunkCount(),
		Status:      Status(d.Status()),
		CreatedAt:   d.CreatedAt(),
		ProcessedAt: d.ProcessedAt(),
		Version:     d.Version(),
	}
}

func fromWithChunks(wc domdoc.WithChunks) DocumentDetail {
	chunks := make([]Chunk, len(wc.Chunks))
	for i, c := range wc.Chunks {
		chunks[i] = Chunk{ID: c.ID, Index: c.Index, Text: c.Text}
	}
	return DocumentDetail{Document: fromDocument(wc.Document), Chunks: chunks}
}

func fromIngestResult(r ingestuc.Result) IngestResult {
	return IngestResult{
		DocumentID: r.DocumentID,
		FileName:   r.FileName,
		ChunkCount: r.ChunkCount,
		Status:     Status(r.Status),
	}
}

func fromChunks(chunks []retrievaluc.Chunk) []SearchHit {
	hits := make([]SearchHit, len(chunks))
	for i, c := range chunks {
		hits[i] = SearchHit{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			FileName:   c.FileName,
			Text:       c.Text,
			Score:      c.Score,
		}
	}
	return hits
}
