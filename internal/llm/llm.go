// Package llm wraps the chat completion API used for sales predictions and product copy.
// Every call is bounded by a timeout and degrades to a zero value on failure.
package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stocksense-backend/internal/config"
	"stocksense-backend/internal/metrics"
	"stocksense-backend/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	opPredict     = "predict_sales"
	opDescription = "describe_product"
)

type Client interface {
	// PredictNextMonthSales returns 0 when no prediction could be made.
	PredictNextMonthSales(ctx context.Context, history []models.SalesHistory) int
	// GenerateDescription returns "" when no description could be generated.
	GenerateDescription(ctx context.Context, name, category string) string
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) PredictNextMonthSales(context.Context, []models.SalesHistory) int { return 0 }
func (Disabled) GenerateDescription(context.Context, string, string) string       { return "" }

type OpenAI struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New returns Disabled when cfg carries no API key.
func New(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) Client {
	if cfg.OpenAIAPIKey == "" {
		return Disabled{}
	}
	return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.LLMTimeout, log, m)
}

func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *OpenAI {
	oc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		oc.BaseURL = baseURL
	}
	return &OpenAI{
		api:     openai.NewClientWithConfig(oc),
		model:   model,
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

func (c *OpenAI) complete(ctx context.Context, op, system, user string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion", op)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAI) PredictNextMonthSales(ctx context.Context, history []models.SalesHistory) int {
	parts := make([]string, 0, len(history))
	for _, h := range history {
		parts = append(parts, fmt.Sprintf("%s: %d", h.Month(), h.Quantity))
	}

	content, err := c.complete(ctx, opPredict,
		"You are a sales prediction assistant. Return only a number.",
		fmt.Sprintf("Based on this sales history: %s, predict the next month's sales quantity as a single integer number only.", strings.Join(parts, ", ")),
		0.3, 10)
	if err != nil {
		c.metrics.LLMRequest(opPredict, false)
		c.log.Warn("sales prediction failed", zap.Error(err))
		return 0
	}

	n, err := strconv.Atoi(content)
	if err != nil || n < 0 {
		c.metrics.LLMRequest(opPredict, false)
		c.log.Warn("sales prediction was not a count", zap.String("content", content))
		return 0
	}
	c.metrics.LLMRequest(opPredict, true)
	return n
}

func (c *OpenAI) GenerateDescription(ctx context.Context, name, category string) string {
	content, err := c.complete(ctx, opDescription,
		"You are a helpful assistant that generates product descriptions.",
		fmt.Sprintf("Generate a product description for %s in the %s category.", name, category),
		0.7, 200)
	if err != nil {
		c.metrics.LLMRequest(opDescription, false)
		c.log.Warn("description generation failed", zap.String("product", name), zap.Error(err))
		return ""
	}
	c.metrics.LLMRequest(opDescription, true)
	return content
}
