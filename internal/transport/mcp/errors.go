// Package mcp exposes search and question answering as Model Context Protocol tools.
package mcp

import "errors"

// ErrMissingRetriever is returned when no retrieval service is provided.
var ErrMissingRetriever = errors.New("mcp: retrieval service is required")
