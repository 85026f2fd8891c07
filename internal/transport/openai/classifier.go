package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/domain"
	"github.com/caredesk-cloud/caredesk/internal/metrics"
)

const classifierSystemPrompt = `You are a sentiment classifier for customer support messages.
Classify the sentiment of the user message and respond with a JSON object only:
{"label": "POSITIVE" | "NEGATIVE" | "NEUTRAL", "confidence": <number between 0 and 1>}`

// Classifier scores message sentiment via an OpenAI-compatible chat completion API.
type Classifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// ClassifierConfig holds the sentiment provider settings.
type ClassifierConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClassifier creates an OpenAI-compatible sentiment classifier.
func NewClassifier(cfg *ClassifierConfig) *Classifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Classifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Classify implements domain.Classifier. Any backend or parse failure is wrapped
// with domain.ErrSentimentBackend so callers can degrade instead of failing.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.SentimentRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.Classification{}, fmt.Errorf("sentiment request failed: %v: %w", err, domain.ErrSentimentBackend)
	}

	if len(resp.Choices) == 0 {
		metrics.SentimentRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.Classification{}, fmt.Errorf("empty sentiment response: %w", domain.ErrSentimentBackend)
	}

	cls, err := parseClassification(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.SentimentRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.Classification{}, err
	}

	metrics.SentimentRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.SentimentRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	return cls, nil
}

// parseClassification decodes the model's JSON verdict and normalizes it.
func parseClassification(content string) (domain.Classification, error) {
	var parsed struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("parse sentiment verdict: %w", domain.ErrSentimentBackend)
	}

	label := domain.Label(strings.ToUpper(strings.TrimSpace(parsed.Label)))
	if !label.Valid() {
		return domain.Classification{}, fmt.Errorf("unknown sentiment label %q: %w", parsed.Label, domain.ErrSentimentBackend)
	}

	conf := parsed.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return domain.Classification{Label: label, Confidence: conf}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Classifier) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
