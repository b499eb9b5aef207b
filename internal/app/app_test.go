package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/config"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/metrics"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

const testAnswer = "Invoices are due in 30 days."

// providerServer fakes the OpenAI-compatible endpoints the pipeline calls.
func providerServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			var req struct {
				Input []string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode embeddings request: %v", err)
			}
			data := make([]map[string]any, len(req.Input))
			for i, in := range req.Input {
				data[i] = map[string]any{"object": "embedding", "index": i, "embedding": fakeVector(in)}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"model":  "test-embed",
				"data":   data,
				"usage":  map[string]any{"prompt_tokens": 3, "total_tokens": 3},
			})
		case "/chat/completions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  "test-llm",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": testAnswer},
					"finish_reason": "stop",
				}},
			})
		case "/models":
			_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func fakeVector(text string) []float32 {
	return []float32{1, float32(len(text)%5) + 1, 0.5, 0.25}
}

func memoryConfig(providerURL string) config.Config {
	cfg := config.Config{
		HTTP:          config.HTTPConfig{Port: 8080},
		Embedding:     config.EmbeddingConfig{BaseURL: providerURL, Model: "test-embed", Dimensions: 4},
		LLM:           config.LLMConfig{BaseURL: providerURL, Model: "test-llm"},
		VectorIndex:   config.VectorIndexConfig{Driver: vectorindex.DriverMemory},
		DocumentStore: config.DocumentStoreConfig{Driver: docstore.DriverMemory},
	}
	cfg.ApplyDefaults()
	// Keep the tokenizer from being fetched.
	cfg.LLM.MaxContextTokens = 0
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	server := providerServer(t)
	a, err := New(context.Background(), memoryConfig(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestNew_IngestSearchAsk(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	text := "Payment terms. Invoices are due thirty days after receipt."
	res, err := a.Ingest.Ingest(ctx, ingestuc.Request{
		Reader:      strings.NewReader(text),
		FileName:    "terms.txt",
		ContentType: "text/plain",
		Size:        int64(len(text)),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Status != document.StatusIndexed {
		t.Fatalf("status = %s, want Indexed", res.Status)
	}
	if res.ChunkCount != 1 {
		t.Errorf("chunk count = %d, want 1", res.ChunkCount)
	}

	found, err := a.Retrieval.Search(ctx, "when are invoices due", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(found.Chunks))
	}
	if found.Chunks[0].DocumentID != res.DocumentID {
		t.Errorf("document id = %s, want %s", found.Chunks[0].DocumentID, res.DocumentID)
	}

	answer, err := a.Retrieval.Ask(ctx, "when are invoices due", 3)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Answer != testAnswer {
		t.Errorf("answer = %q, want %q", answer.Answer, testAnswer)
	}

	docs, err := a.Documents.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || docs[0].FileName() != "terms.txt" {
		t.Errorf("unexpected documents: %+v", docs)
	}
}

func TestNew_HealthThroughRouter(t *testing.T) {
	a := newTestApp(t)
	handler := a.HTTPHandler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, name := range []string{"document_store", "vector_index", "embedding"} {
		if body.Checks[name] != "ok" {
			t.Errorf("check %s = %q, want ok", name, body.Checks[name])
		}
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := memoryConfig("http://127.0.0.1:1")
	cfg.VectorIndex.Driver = "faiss"

	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown vector index driver")
	}
}

func TestApp_MCPServer(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.MCPServer(); err != nil {
		t.Fatalf("MCPServer: %v", err)
	}
}

func TestApp_Watcher(t *testing.T) {
	a := newTestApp(t)

	if _, err := a.Watcher(""); err == nil {
		t.Error("expected error without an inbox directory")
	}

	w, err := a.Watcher(t.TempDir())
	if err != nil {
		t.Fatalf("Watcher: %v", err)
	}
	if w == nil {
		t.Fatal("nil watcher")
	}
}
