package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

const uriScheme = "aidoc://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "All ingested documents with their status, newest first",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-text",
		Description: "Stored chunk text of one document in reading order",
		MIMEType:    "text/plain",
	}, s.handleDocumentTextResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return jsonResource(req.Params.URI, "[]"), nil
	}

	docs, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID         string `json:"id"`
		FileName   string `json:"file_name"`
		Status     string `json:"status"`
		ChunkCount int    `json:"chunk_count"`
	}
	infos := make([]docInfo, len(docs))
	for i, d := range docs {
		infos[i] = docInfo{ID: d.ID(), FileName: d.FileName(), Status: d.Status().String(), ChunkCount: d.ChunkCount()}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func (s *Server) handleDocumentTextResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if s.ports.Documents == nil || docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	wc, err := s.ports.Documents.Get(ctx, docID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	texts := make([]string, len(wc.Chunks))
	for i, c := range wc.Chunks {
		texts[i] = c.Text
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strings.Join(texts, "\n\n"),
		}},
	}, nil
}

func jsonResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: text}},
	}
}

// extractDocumentID reads {documentId} from aidoc://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}
