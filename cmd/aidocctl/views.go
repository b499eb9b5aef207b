package main

import (
	"time"

	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

type documentView struct {
	ID          string      `json:"id"`
	FileName    string      `json:"fileName"`
	ContentType string      `json:"contentType"`
	SizeBytes   int64       `json:"sizeBytes"`
	ChunkCount  int         `json:"chunkCount"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	ProcessedAt *time.Time  `json:"processedAt,omitempty"`
	Version     int         `json:"version"`
	Chunks      []chunkView `json:"chunks,omitempty"`
}

type chunkView struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

func newDocumentView(d domdoc.Document) documentView {
	v := documentView{
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
		v.ProcessedAt = &at
	}
	return v
}
