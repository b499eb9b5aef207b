package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/chunker"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/memory"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
)

const coll = "documents"

type env struct {
	svc      *Service
	store    *memory.Store
	index    *spyIndex
	embedder *fakeEmbedder
	chunker  *chunker.Chunker
	ext      Extractor
	cfg      Config
}

func newEnv(t *testing.T, ext Extractor, emb *fakeEmbedder, cfg Config) *env {
	t.Helper()
	ch, err := chunker.New(chunker.WithSize(60), chunker.WithOverlap(10))
	if err != nil {
		t.Fatal(err)
	}
	if emb == nil {
		emb = &fakeEmbedder{}
	}
	cfg.Collection = coll
	cfg.VectorSize = testDims
	e := &env{store: memory.New(), index: newSpyIndex(), embedder: emb, chunker: ch, ext: ext, cfg: cfg}
	e.svc = New(ext, ch, emb, e.index, e.store, cfg, zap.NewNop())
	return e
}

// flaky rebuilds the service on top of a flakyStore sharing e.store.
func (e *env) flaky() *flakyStore {
	fs := &flakyStore{Store: e.store}
	e.svc = New(e.ext, e.chunker, e.embedder, e.index, fs, e.cfg, zap.NewNop())
	return fs
}

func longText() string {
	var b strings.Builder
	for i := range 12 {
		b.WriteString("Sentence number " + strconv.Itoa(i) + " talks about retrieval. ")
	}
	return b.String()
}

func request(text string) Request {
	return Request{Reader: strings.NewReader(text), FileName: "notes.txt", ContentType: "text/plain", Size: int64(len(text))}
}

func mustGet(t *testing.T, e *env, id string) document.Document {
	t.Helper()
	doc, err := e.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	return doc
}

func TestIngest_Success(t *testing.T) {
	text := longText()
	e := newEnv(t, &stubExtractor{}, nil, Config{Compensate: true})

	res, err := e.svc.Ingest(context.Background(), request(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := len(e.chunker.Chunk(text))
	if want < 2 {
		t.Fatalf("test text should produce several chunks, got %d", want)
	}
	if res.Status != document.StatusIndexed || res.ChunkCount != want || res.FileName != "notes.txt" {
		t.Fatalf("unexpected result %+v, want %d chunks", res, want)
	}

	doc := mustGet(t, e, res.DocumentID)
	if doc.Status() != document.StatusIndexed || doc.ChunkCount() != want {
		t.Errorf("stored document = %s/%d", doc.Status(), doc.ChunkCount())
	}
	if doc.ProcessedAt().IsZero() {
		t.Error("processed timestamp not set")
	}
	if doc.Version() != 2 {
		t.Errorf("version = %d, want 2 (create + indexed)", doc.Version())
	}

	chunks, err := e.store.Chunks(context.Background(), res.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != want {
		t.Fatalf("stored %d chunks, want %d", len(chunks), want)
	}
	if got := e.index.Count(coll, res.DocumentID); got != want {
		t.Fatalf("indexed %d vectors, want %d", got, want)
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if e.index.upserted[i].ID != c.ID {
			t.Errorf("chunk %d id %s differs from vector id %s", i, c.ID, e.index.upserted[i].ID)
		}
	}
	if len(e.index.deletes) != 0 {
		t.Errorf("unexpected compensating deletes: %v", e.index.deletes)
	}
}

func TestIngest_PayloadIsSelfDescribing(t *testing.T) {
	e := newEnv(t, &stubExtractor{text: "Short text."}, nil, Config{})

	res, err := e.svc.Ingest(context.Background(), request("ignored"))
	if err != nil {
		t.Fatal(err)
	}
	p := e.index.upserted[0].Payload
	if p[vector.PayloadText] != "Short text." || p[vector.PayloadDocumentID] != res.DocumentID ||
		p[vector.PayloadFileName] != "notes.txt" || p[vector.PayloadChunkIndex] != "0" {
		t.Errorf("unexpected payload %v", p)
	}
}

func TestIngest_ExtractionFailure(t *testing.T) {
	extErr := fmtErr(domain.ErrExtractionFailed)
	e := newEnv(t, &stubExtractor{err: extErr}, nil, Config{Compensate: true})

	res, err := e.svc.Ingest(context.Background(), request("x"))
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if res.Status != document.StatusFailed || res.DocumentID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	doc := mustGet(t, e, res.DocumentID)
	if doc.Status() != document.StatusFailed {
		t.Errorf("stored status = %s, want Failed", doc.Status())
	}
	chunks, _ := e.store.Chunks(context.Background(), res.DocumentID)
	if len(chunks) != 0 || e.index.Count(coll, res.DocumentID) != 0 {
		t.Error("failed extraction must not write chunks or vectors")
	}
	if e.embedder.calls.Load() != 0 {
		t.Error("embedder must not be called")
	}
	if len(e.index.deletes) != 0 {
		t.Error("nothing was indexed, no compensation expected")
	}
}

func TestIngest_EmbeddingFailureCompensates(t *testing.T) {
	emb := &fakeEmbedder{failAt: 2, err: domain.ErrEmbeddingProviderError}
	e := newEnv(t, &stubExtractor{}, emb, Config{Compensate: true})

	res, err := e.svc.Ingest(context.Background(), request(longText()))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if emb.calls.Load() != 2 {
		t.Errorf("embedding must stop at the first failure, got %d calls", emb.calls.Load())
	}
	if len(e.index.deletes) != 1 || e.index.deletes[0] != res.DocumentID {
		t.Errorf("expected one compensating delete for %s, got %v", res.DocumentID, e.index.deletes)
	}
	if len(e.index.upserted) != 0 {
		t.Error("no partial upsert allowed")
	}
	if mustGet(t, e, res.DocumentID).Status() != document.StatusFailed {
		t.Error("document must be Failed")
	}
}

func TestIngest_EmptyEmbedding(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, &fakeEmbedder{empty: true}, Config{})

	_, err := e.svc.Ingest(context.Background(), request("Some text."))
	if !errors.Is(err, domain.ErrEmptyEmbedding) {
		t.Fatalf("expected ErrEmptyEmbedding, got %v", err)
	}
}

func TestIngest_CompensationDisabled(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{Compensate: false})
	e.index.upsertErr = fmtErr(domain.ErrVectorIndexError)

	res, err := e.svc.Ingest(context.Background(), request(longText()))
	if !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
	if len(e.index.deletes) != 0 {
		t.Errorf("compensation disabled, got deletes %v", e.index.deletes)
	}
	if mustGet(t, e, res.DocumentID).Status() != document.StatusFailed {
		t.Error("document must be Failed")
	}
}

func TestIngest_CleanupErrorDoesNotMaskCause(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{Compensate: true})
	e.index.upsertErr = fmtErr(domain.ErrVectorIndexError)
	e.index.deleteErr = errBoom

	_, err := e.svc.Ingest(context.Background(), request(longText()))
	if !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("original cause lost: %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("cleanup error not joined: %v", err)
	}
}

func TestIngest_EnsureCollectionFailure(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{Compensate: true})
	e.index.ensureErr = fmtErr(domain.ErrVectorIndexError)

	_, err := e.svc.Ingest(context.Background(), request("text"))
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if len(e.index.deletes) != 0 {
		t.Error("collection never ensured, no compensation expected")
	}
}

func TestIngest_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	emb := &fakeEmbedder{afterCall: func(n int32) {
		if n == 1 {
			cancel()
		}
	}}
	e := newEnv(t, &stubExtractor{}, emb, Config{Compensate: true})

	res, err := e.svc.Ingest(ctx, request(longText()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if emb.calls.Load() != 1 {
		t.Errorf("no chunk may be dispatched after cancellation, got %d calls", emb.calls.Load())
	}
	if len(e.index.upserted) != 0 {
		t.Error("no partial upsert allowed")
	}
	if mustGet(t, e, res.DocumentID).Status() != document.StatusFailed {
		t.Error("cancelled ingestion must leave a Failed document")
	}
}

func TestIngest_ParallelWorkersKeepOrder(t *testing.T) {
	text := longText()
	e := newEnv(t, &stubExtractor{}, nil, Config{Workers: 4})

	res, err := e.svc.Ingest(context.Background(), request(text))
	if err != nil {
		t.Fatal(err)
	}
	pieces := e.chunker.Chunk(text)
	if res.ChunkCount != len(pieces) || len(e.index.upserted) != len(pieces) {
		t.Fatalf("got %d chunks / %d points, want %d", res.ChunkCount, len(e.index.upserted), len(pieces))
	}
	for i, p := range e.index.upserted {
		if p.Payload[vector.PayloadText] != pieces[i] {
			t.Fatalf("point %d carries text of another chunk", i)
		}
		want := vectorFor(pieces[i])
		for j := range want {
			if p.Vector[j] != want[j] {
				t.Fatalf("point %d carries vector of another chunk", i)
			}
		}
	}
}

func TestIngest_ParallelFailure(t *testing.T) {
	emb := &fakeEmbedder{failAt: 3, err: domain.ErrEmbeddingProviderError}
	e := newEnv(t, &stubExtractor{}, emb, Config{Workers: 3, Compensate: true})

	res, err := e.svc.Ingest(context.Background(), request(longText()))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(e.index.upserted) != 0 {
		t.Error("no partial upsert allowed")
	}
	if mustGet(t, e, res.DocumentID).Status() != document.StatusFailed {
		t.Error("document must be Failed")
	}
}

func TestIngest_ZeroChunks(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{})

	res, err := e.svc.Ingest(context.Background(), request("   \n  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != document.StatusIndexed || res.ChunkCount != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if e.embedder.calls.Load() != 0 || len(e.index.upserted) != 0 {
		t.Error("nothing to embed or index")
	}
}

func TestIngest_InvalidFileName(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{})

	_, err := e.svc.Ingest(context.Background(), Request{Reader: strings.NewReader("x"), FileName: "  "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	docs, _ := e.store.GetAll(context.Background())
	if len(docs) != 0 {
		t.Error("invalid input must not create a document")
	}
}

func TestIngest_EmptyFileRejected(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{})

	_, err := e.svc.Ingest(context.Background(), Request{Reader: strings.NewReader(""), FileName: "empty.txt", ContentType: "text/plain"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	docs, _ := e.store.GetAll(context.Background())
	if len(docs) != 0 {
		t.Error("an empty file must not create a document")
	}
	if e.embedder.calls.Load() != 0 {
		t.Error("nothing to embed")
	}
}

func TestIngest_IndexedUpdateFailureRemovesChunksAndVectors(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{Compensate: true})
	fs := e.flaky()
	fs.indexedErr = errBoom

	res, err := e.svc.Ingest(context.Background(), request(longText()))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected update error, got %v", err)
	}
	if mustGet(t, e, res.DocumentID).Status() != document.StatusFailed {
		t.Error("document must be Failed")
	}
	chunks, err := e.store.Chunks(context.Background(), res.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("%d chunk records left pointing at deleted vectors", len(chunks))
	}
	if n := e.index.Count(coll, res.DocumentID); n != 0 {
		t.Errorf("%d vectors left, want 0", n)
	}
}

func TestIngest_ChunkCleanupFailureKeepsVectors(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{Compensate: true})
	fs := e.flaky()
	fs.indexedErr = errBoom
	fs.deleteChunksErr = domain.ErrBackendUnavailable

	res, err := e.svc.Ingest(context.Background(), request(longText()))
	if !errors.Is(err, errBoom) || !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected cause and cleanup error, got %v", err)
	}
	if len(e.index.deletes) != 0 {
		t.Errorf("vectors deleted while chunk records remain: %v", e.index.deletes)
	}
	chunks, _ := e.store.Chunks(context.Background(), res.DocumentID)
	if n := e.index.Count(coll, res.DocumentID); n != len(chunks) || n == 0 {
		t.Errorf("chunks = %d, vectors = %d; want equal and non-zero", len(chunks), n)
	}
}

func TestIngest_IndexedUpdateFailureWithoutCompensation(t *testing.T) {
	e := newEnv(t, &stubExtractor{}, nil, Config{})
	fs := e.flaky()
	fs.indexedErr = errBoom

	res, err := e.svc.Ingest(context.Background(), request(longText()))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected update error, got %v", err)
	}
	if len(e.index.deletes) != 0 {
		t.Errorf("compensation disabled, got deletes %v", e.index.deletes)
	}
	chunks, _ := e.store.Chunks(context.Background(), res.DocumentID)
	if n := e.index.Count(coll, res.DocumentID); n != len(chunks) {
		t.Errorf("chunks = %d, vectors = %d; want equal", len(chunks), n)
	}

	// Reconcile cleans the Failed document later.
	fs.indexedErr = nil
	report, err := e.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Cleaned) != 1 || report.Cleaned[0] != res.DocumentID {
		t.Fatalf("cleaned = %v", report.Cleaned)
	}
	chunks, _ = e.store.Chunks(context.Background(), res.DocumentID)
	if len(chunks) != 0 || e.index.Count(coll, res.DocumentID) != 0 {
		t.Error("reconcile must remove chunk records and vectors of a Failed document")
	}
}

func fmtErr(sentinel error) error {
	return errors.Join(errBoom, sentinel)
}
