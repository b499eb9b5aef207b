package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/metrics"
)

const (
	systemPrompt = "You are a document analysis AI. Answer ONLY using the provided context below. " +
		"If the answer is not found in the context, say exactly: \"Not found in document.\" " +
		"Do not make up information. Be concise and accurate."

	// NoResponse is returned when the model replies with nothing.
	NoResponse = "No response from LLM."

	defaultEncoding = "cl100k_base"
)

// Tokenizer splits text into model tokens and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Answerer produces grounded answers through a chat completion model.
type Answerer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger

	tokOnce   sync.Once
	tokenizer Tokenizer
}

// AnswererConfig holds the generative model settings.
type AnswererConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Temperature      float32
	MaxContextTokens int // prompt budget; 0 disables truncation
	Timeout          time.Duration
	Logger           *zap.Logger
	// Tokenizer overrides the cl100k_base encoding.
	Tokenizer Tokenizer
}

// NewAnswerer creates an OpenAI-compatible answer client.
func NewAnswerer(cfg *AnswererConfig) *Answerer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxContextTokens,
		logger:      logger,
		tokenizer:   cfg.Tokenizer,
	}
}

// Answer asks the model to answer question using only contextText.
func (a *Answerer) Answer(ctx context.Context, question, contextText string) (string, error) {
	contextText = a.fitContext(question, contextText)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(question, contextText)},
		},
	})
	if err != nil {
		return "", parseAPIError(err, domain.ErrAnswerProviderError)
	}
	if resp.Usage.PromptTokens > 0 {
		metrics.AnswerPromptTokens.Observe(float64(resp.Usage.PromptTokens))
	}

	if len(resp.Choices) == 0 {
		return NoResponse, nil
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return NoResponse, nil
	}
	return answer, nil
}

// HealthCheck verifies API availability via ListModels.
func (a *Answerer) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError(err, domain.ErrAnswerProviderError))
	}
	return nil
}

func userPrompt(question, contextText string) string {
	return "Context:\n" + contextText + "\n\nQuestion: " + question + "\n\nAnswer:"
}

// fitContext trims contextText from the end so the whole prompt stays within maxTokens.
func (a *Answerer) fitContext(question, contextText string) string {
	if a.maxTokens <= 0 {
		return contextText
	}
	tok := a.loadTokenizer()
	if tok == nil {
		return contextText
	}

	fixed := len(tok.Encode(systemPrompt)) + len(tok.Encode(userPrompt(question, "")))
	ctxTokens := tok.Encode(contextText)
	budget := a.maxTokens - fixed
	if len(ctxTokens) <= budget {
		return contextText
	}
	if budget < 0 {
		budget = 0
	}

	a.logger.Warn("Context truncated to fit prompt budget",
		zap.Int("context_tokens", len(ctxTokens)),
		zap.Int("kept_tokens", budget),
		zap.Int("max_tokens", a.maxTokens),
	)
	return tok.Decode(ctxTokens[:budget])
}

func (a *Answerer) loadTokenizer() Tokenizer {
	a.tokOnce.Do(func() {
		if a.tokenizer != nil {
			return
		}
		enc, err := tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			a.logger.Warn("Tokenizer unavailable, context will not be truncated", zap.Error(err))
			return
		}
		a.tokenizer = tiktokenAdapter{enc: enc}
	})
	return a.tokenizer
}

type tiktokenAdapter struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenAdapter) Encode(text string) []int { return t.enc.Encode(text, nil, nil) }

func (t tiktokenAdapter) Decode(tokens []int) string { return t.enc.Decode(tokens) }
