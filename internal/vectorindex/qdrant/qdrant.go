// Package qdrant implements the vector index over Qdrant's REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
)

var _ vectorindex.Index = (*Client)(nil)

// Client talks to one Qdrant instance.
type Client struct {
	endpoint string
	client   *http.Client

	mu      sync.Mutex
	ensured map[string]bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(q *Client) { q.client = c }
}

// New creates a Client for the given base URL, e.g. http://localhost:6333.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("qdrant endpoint is required")
	}
	q := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		ensured:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// EnsureCollection checks for the collection and creates it with cosine distance if absent.
func (q *Client) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured[name] {
		return nil
	}

	path := "/collections/" + url.PathEscape(name)
	err := q.do(ctx, http.MethodGet, path, nil, nil)
	switch {
	case err == nil:
	case isNotFound(err):
		body := map[string]any{
			"vectors": map[string]any{"size": vectorSize, "distance": "Cosine"},
		}
		if err := q.do(ctx, http.MethodPut, path, body, nil); err != nil && !isConflict(err) {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	default:
		return fmt.Errorf("get collection %s: %w", name, err)
	}

	q.ensured[name] = true
	return nil
}

type point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// Upsert writes all points in one request and waits for them to be indexed.
func (q *Client) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}
	for i, p := range points {
		body.Points[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	path := "/collections/" + url.PathEscape(collection) + "/points?wait=true"
	if err := q.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search runs a nearest-neighbor query with payloads.
func (q *Client) Search(ctx context.Context, collection string, query []float32, topK int) ([]vector.Hit, error) {
	body := map[string]any{
		"vector":       query,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := "/collections/" + url.PathEscape(collection) + "/points/search"
	if err := q.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]vector.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		payload := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			payload[k] = stringify(v)
		}
		hits = append(hits, vector.Hit{ID: stringify(r.ID), Score: r.Score, Payload: payload})
	}
	return hits, nil
}

// DeleteByDocumentID deletes points whose documentId payload matches.
func (q *Client) DeleteByDocumentID(ctx context.Context, collection, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []any{
				map[string]any{
					"key":   vector.PayloadDocumentID,
					"match": map[string]any{"value": documentID},
				},
			},
		},
	}
	path := "/collections/" + url.PathEscape(collection) + "/points/delete?wait=true"
	if err := q.do(ctx, http.MethodPost, path, body, nil); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete points of %s: %w", documentID, err)
	}
	return nil
}

// IsHealthy probes /healthz.
func (q *Client) IsHealthy(ctx context.Context) bool {
	return q.do(ctx, http.MethodGet, "/healthz", nil, nil) == nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant returned %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func isConflict(err error) bool {
	var se *statusError
	return errors.As(err, &se) && (se.code == http.StatusConflict || strings.Contains(se.body, "already exists"))
}

// do sends a JSON request. Failures wrap domain.ErrVectorIndexError.
func (q *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorIndexError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %w", domain.ErrVectorIndexError, &statusError{code: resp.StatusCode, body: string(b)})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrVectorIndexError, err)
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
