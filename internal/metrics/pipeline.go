package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and retrieval metrics.
var (
	IngestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Ingestions by final status",
		},
		[]string{"outcome"}, // indexed / failed
	)

	IngestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "End-to-end ingestion duration",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	ChunksPerDocument = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunks_per_document",
			Help:      "Chunks produced per indexed document",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	CompensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensating_deletes_total",
			Help:      "Vector deletes run to undo failed ingestions and during reconcile",
		},
		[]string{"source", "outcome"}, // ingest|reconcile, ok|error
	)

	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Search and ask requests by outcome",
		},
		[]string{"operation", "outcome"}, // search|ask, ok|empty|error
	)

	AnswerPromptTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_prompt_tokens",
			Help:      "Prompt tokens sent to the answer model",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
	)
)
