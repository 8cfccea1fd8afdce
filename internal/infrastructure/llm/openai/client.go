// Package openai adapts an OpenAI-compatible endpoint to the embedding,
// intent-classification, and answer-generation ports. All calls run through
// the resilience executor, one breaker per operation.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/karisazi/faq-chatbot/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL      string
	APIKey       string
	EmbedModel   string
	ChatModel    string
	Temperature  float32
	MaxBatchSize int
}

type Client struct {
	api      *openai.Client
	cfg      Config
	executor *resilience.Executor
	logger   *slog.Logger
}

func New(cfg Config, executor *resilience.Executor, logger *slog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:      openai.NewClientWithConfig(apiCfg),
		cfg:      cfg,
		executor: executor,
		logger:   logger,
	}
}

// Embed returns one vector per input text, preserving order. Inputs are sent
// in batches so a large workbook does not exceed request limits.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.MaxBatchSize {
		end := start + c.cfg.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors, want 1", len(vectors))
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var resp openai.EmbeddingResponse
	err := c.executor.Execute(ctx, "embed", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.cfg.EmbedModel),
		})
		return callErr
	}, classifyAPIError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embed: vector index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// ClassifyIntent asks the chat model which category a query belongs to and
// returns the raw label text. Interpretation of the label is the router's job.
func (c *Client) ClassifyIntent(ctx context.Context, query string) (string, error) {
	var resp openai.ChatCompletionResponse
	err := c.executor.Execute(ctx, "classify_intent", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.cfg.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: routingInstruction},
				{Role: openai.ChatMessageRoleUser, Content: query},
			},
			Temperature: 0,
			MaxTokens:   16,
		})
		return callErr
	}, classifyAPIError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("classify_intent", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("classify intent: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateAnswer synthesizes a grounded answer from the assembled context
// block. The model is told to answer only from the given context.
func (c *Client) GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error) {
	var resp openai.ChatCompletionResponse
	err := c.executor.Execute(ctx, "generate_answer", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.cfg.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: answerInstruction},
				{Role: openai.ChatMessageRoleUser, Content: buildAnswerPrompt(question, contextBlock)},
			},
			Temperature: c.cfg.Temperature,
		})
		return callErr
	}, classifyAPIError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate_answer", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate answer: empty response")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("generate answer: blank completion")
	}
	return answer, nil
}
