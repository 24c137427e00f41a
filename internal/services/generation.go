package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/resume-analyzer/internal/config"
)

// GenerationClient sends one prompt to a text-generation service. Calls are
// slow, may fail and are not deterministic; callers must not cache them.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerationClient builds the client for the configured provider.
func NewGenerationClient(cfg config.GenerationConfig, logger *zap.Logger) (GenerationClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiService(cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
