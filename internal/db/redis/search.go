package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/db"
)

const (
	scoreField = "__vector_score"
	keysPage   = 1000
)

// SearchKNN runs a KNN query. Scores are converted from cosine distance to similarity.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.Field
	if field == "" {
		field = "vector"
	}
	prefilter := "*"
	if q.Filter != "" {
		prefilter = "(" + q.Filter + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", prefilter, q.K, field, scoreField)

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, scoreField)
	}
	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", VectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseKNNResult(raw)
}

// SearchKeys returns every key matching query, paging with NOCONTENT.
func (s *Store) SearchKeys(ctx context.Context, index, query string) ([]string, error) {
	var keys []string
	for offset := 0; ; offset += keysPage {
		cmd := s.b().Arbitrary("FT.SEARCH").
			Args(index, query, "NOCONTENT", "LIMIT", strconv.Itoa(offset), strconv.Itoa(keysPage), "DIALECT", "2").
			Build()
		raw, err := s.do(ctx, cmd).ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		if len(raw) == 0 {
			return keys, nil
		}
		total, err := raw[0].AsInt64()
		if err != nil {
			return nil, fmt.Errorf("parse total: %w", err)
		}
		for _, m := range raw[1:] {
			if k, err := m.ToString(); err == nil {
				keys = append(keys, k)
			}
		}
		if len(raw) == 1 || int64(offset+keysPage) >= total {
			return keys, nil
		}
	}
}

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)}
		if d, ok := entry.Fields[scoreField]; ok {
			if dist, err := strconv.ParseFloat(d, 64); err == nil {
				entry.Score = 1 - dist
			}
			delete(entry.Fields, scoreField)
		}
		entries = append(entries, entry)
	}
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// TagQuery builds an exact TAG match such as @documentId:{a\-b}.
func TagQuery(field, value string) string {
	return "@" + field + ":{" + tagEscaper.Replace(value) + "}"
}

var tagEscaper = strings.NewReplacer(
	",", `\,`, ".", `\.`, "<", `\<`, ">", `\>`, "{", `\{`, "}", `\}`,
	`"`, `\"`, "'", `\'`, ":", `\:`, ";", `\;`, "!", `\!`, "@", `\@`,
	"#", `\#`, "$", `\$`, "%", `\%`, "^", `\^`, "&", `\&`, "*", `\*`,
	"(", `\(`, ")", `\)`, "-", `\-`, "+", `\+`, "=", `\=`, "~", `\~`,
	"|", `\|`, "/", `\/`, " ", `\ `,
)

// VectorToBytes encodes v as little-endian FLOAT32, the layout FT vector fields expect.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
