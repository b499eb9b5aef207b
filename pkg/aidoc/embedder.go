package aidoc

import (
	"context"
	"time"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/transport/openai"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Answerer produces an answer to question grounded in contextText.
type Answerer interface {
	Answer(ctx context.Context, question, contextText string) (string, error)
}

const providerTimeout = 60 * time.Second

// WithOpenAIEmbedder embeds through an OpenAI-compatible API
// (OpenAI, Ollama under /v1, Nebius and similar).
func WithOpenAIEmbedder(baseURL, apiKey, model string, vectorSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.builtin = openai.NewEmbedder(&openai.EmbedderConfig{
			APIKey:     apiKey,
			BaseURL:    baseURL,
			Model:      model,
			VectorSize: vectorSize,
			Provider:   "openai",
			Timeout:    providerTimeout,
		})
		c.embedder = nil
		c.vectorSize = vectorSize
	})
}

// WithOpenAIAnswerer answers through an OpenAI-compatible chat completion API.
func WithOpenAIAnswerer(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.answerer = openai.NewAnswerer(&openai.AnswererConfig{
			APIKey:      apiKey,
			BaseURL:     baseURL,
			Model:       model,
			Temperature: 0.1,
			Timeout:     2 * providerTimeout,
		})
	})
}
