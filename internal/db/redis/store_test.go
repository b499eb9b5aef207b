package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreForTest(c), c
}

// --- client.go ---

func TestPing_Success(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded)).
		AnyTimes()

	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestIsRedisErr(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisError("ERR Unknown Index Name")))

	err := s.do(context.Background(), s.b().Ping().Build()).Error()
	if !isRedisErr(err, "unknown index name") {
		t.Errorf("expected case-insensitive match for %v", err)
	}
	if isRedisErr(context.Canceled, "canceled") {
		t.Error("non-server errors must not match")
	}
}

// --- hash.go ---

func TestHSetMulti_Success(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(2)),
		})

	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "documents:1", Fields: map[string]string{"text": "a"}},
		{Key: "documents:2", Fields: map[string]string{"text": "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_PartialError(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
		{Key: "k2", Fields: map[string]string{"f": "v"}},
	})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpHSet {
		t.Fatalf("expected HSET db.Error, got %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDel_MultipleKeys(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "k1", "k2")).
		Return(mock.Result(mock.RedisInt64(2)))

	n, err := s.Del(context.Background(), "k1", "k2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
}

func TestDel_NoKeys(t *testing.T) {
	s := NewStoreForTest(nil)
	n, err := s.Del(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got %d, %v", n, err)
	}
}

// --- kv.go ---

func TestGet_Success(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_NetworkError(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := s.Get(context.Background(), "mykey")
	if errors.Is(err, db.ErrKeyNotFound) {
		t.Error("network errors must not look like a miss")
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.SetWithTTL(context.Background(), "mykey", []byte("myvalue"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go ---

func TestCreateIndex_Args(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.CREATE", "documents", "ON", "HASH", "PREFIX", "1", "documents:",
			"SCHEMA",
			"documentId", "TAG",
			"vector", "VECTOR", "FLAT", "6", "TYPE", "FLOAT32", "DIM", "4", "DISTANCE_METRIC", "COSINE",
		)).
		Return(mock.Result(mock.RedisString("OK")))

	def, err := db.NewIndex("documents").
		Prefix("documents:").
		Tag("documentId").
		Vector("vector", 4, "", "").
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	def := &db.IndexDefinition{Name: "idx", Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}}}
	if err := s.CreateIndex(context.Background(), def); !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidDefinition(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: "idx"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name   string
		result rueidis.RedisResult
		want   bool
	}{
		{"present", mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("idx"))), true},
		{"absent", mock.Result(mock.RedisError("Unknown Index name")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).Return(tt.result)

			got, err := s.IndexExists(context.Background(), "idx")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IndexExists = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- search.go ---

func TestSearchKNN_Success(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "documents" &&
				cmd[2] == "*=>[KNN 2 @vector $BLOB AS __vector_score]"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("documents:c1"),
			mock.RedisArray(
				mock.RedisString("text"), mock.RedisString("first"),
				mock.RedisString("__vector_score"), mock.RedisString("0.1"),
			),
			mock.RedisString("documents:c2"),
			mock.RedisArray(
				mock.RedisString("text"), mock.RedisString("second"),
				mock.RedisString("__vector_score"), mock.RedisString("0.4"),
			),
		)))

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "documents",
		Vector:       []float32{0.1, 0.2},
		K:            2,
		ReturnFields: []string{"text"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	first := res.Entries[0]
	if first.Key != "documents:c1" || first.Fields["text"] != "first" {
		t.Errorf("unexpected first entry %+v", first)
	}
	if first.Score < 0.89 || first.Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", first.Score)
	}
	if _, ok := first.Fields["__vector_score"]; ok {
		t.Error("score field must be removed from fields")
	}
}

func TestSearchKNN_WithFilter(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "(@documentId:{d1})=>[KNN 3 @vector $BLOB AS __vector_score]"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "documents",
		Filter:    "@documentId:{d1}",
		Vector:    []float32{1},
		K:         3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil)
	tests := []*db.KNNQuery{
		{Vector: []float32{1}, K: 1},
		{IndexName: "idx", K: 1},
		{IndexName: "idx", Vector: []float32{1}},
	}
	for _, q := range tests {
		if _, err := s.SearchKNN(context.Background(), q); err == nil {
			t.Errorf("expected error for %+v", q)
		}
	}
}

func TestSearchKNN_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}, K: 1})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
		t.Fatalf("expected FT.SEARCH db.Error, got %v", err)
	}
}

func TestSearchKeys_SinglePage(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.SEARCH", "documents", "@documentId:{d1}", "NOCONTENT", "LIMIT", "0", "1000", "DIALECT", "2",
		)).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("documents:c1"),
			mock.RedisString("documents:c2"),
		)))

	keys, err := s.SearchKeys(context.Background(), "documents", "@documentId:{d1}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "documents:c1" || keys[1] != "documents:c2" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestSearchKeys_Empty(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	keys, err := s.SearchKeys(context.Background(), "documents", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestTagQuery_EscapesUUID(t *testing.T) {
	got := TagQuery("documentId", "3f1c-9a")
	if want := `@documentId:{3f1c\-9a}`; got != want {
		t.Errorf("TagQuery = %q, want %q", got, want)
	}
}

func TestVectorToBytes(t *testing.T) {
	b := VectorToBytes([]float32{1.0, 2.0})
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	// 1.0 as little-endian float32 is 00 00 80 3f.
	if b[0] != 0x00 || b[2] != 0x80 || b[3] != 0x3f {
		t.Errorf("unexpected encoding % x", b[:4])
	}
}
