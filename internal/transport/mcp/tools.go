package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

const maxTopK = 50

var errTopKRange = errors.New("top_k must be between 1 and 50")

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural-language text to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return, 1 to 50 (default 3)"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks used as context, 1 to 50 (default 3)"`
}

// ChunkOutput is one retrieved chunk.
type ChunkOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"file_name,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Chunks          []ChunkOutput `json:"chunks"`
	CombinedContext string        `json:"combined_context"`
	Count           int           `json:"count"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string        `json:"answer"`
	Question string        `json:"question"`
	Sources  []ChunkOutput `json:"sources"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over indexed document chunks",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed documents as context",
	}, s.handleAsk)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK, err := resolveTopK(input.TopK)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	res, err := s.ports.Retrieval.Search(ctx, strings.TrimSpace(input.Query), topK)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Chunks:          toChunkOutputs(res.Chunks),
		CombinedContext: res.CombinedContext,
		Count:           len(res.Chunks),
	}, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	topK, err := resolveTopK(input.TopK)
	if err != nil {
		return nil, AskOutput{}, err
	}

	res, err := s.ports.Retrieval.Ask(ctx, strings.TrimSpace(input.Question), topK)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:   res.Answer,
		Question: res.Question,
		Sources:  toChunkOutputs(res.Sources),
	}, nil
}

// resolveTopK defaults an omitted value and rejects out-of-range ones.
func resolveTopK(v int) (int, error) {
	switch {
	case v == 0:
		return retrievaluc.DefaultTopK, nil
	case v < 0 || v > maxTopK:
		return 0, errTopKRange
	default:
		return v, nil
	}
}

func toChunkOutputs(chunks []retrievaluc.Chunk) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkOutput{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			FileName:   c.FileName,
			Text:       c.Text,
			Score:      c.Score,
		}
	}
	return out
}
