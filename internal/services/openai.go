package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"alfredoptarigan/resume-analyzer/internal/config"
)

type openAIService struct {
	client          openai.Client
	model           string
	temperature     float64
	maxOutputTokens int64
	logger          *zap.Logger
}

// NewOpenAIService talks to the OpenAI chat completions API or any server
// compatible with it when a base URL is configured.
func NewOpenAIService(cfg config.GenerationConfig, logger *zap.Logger) (GenerationClient, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("openai api key is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openAIService{
		client:          openai.NewClient(opts...),
		model:           model,
		temperature:     float64(cfg.Temperature),
		maxOutputTokens: int64(cfg.MaxOutputTokens),
		logger:          logger.Named("openai"),
	}, nil
}

// Generate implements GenerationClient.
func (o *openAIService) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(o.temperature),
	}
	if o.maxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(o.maxOutputTokens)
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		o.logger.Warn("openai request failed", zap.String("model", o.model), zap.Error(err))
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %w", ErrEmptyGeneration)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		o.logger.Warn("openai returned no text",
			zap.String("model", o.model),
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		)
		return "", ErrEmptyGeneration
	}

	o.logger.Debug("openai response received",
		zap.String("model", o.model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)),
	)

	return text, nil
}
