package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-analyzer/internal/models"
	"alfredoptarigan/resume-analyzer/internal/services"
)

type AnalyzeHandler struct {
	analyzer   services.AnalyzerService
	uploads    services.UploadReader
	runTimeout time.Duration
	logger     *zap.Logger
}

func NewAnalyzeHandler(
	analyzer services.AnalyzerService,
	uploads services.UploadReader,
	runTimeout time.Duration,
	logger *zap.Logger,
) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:   analyzer,
		uploads:    uploads,
		runTimeout: runTimeout,
		logger:     logger.Named("handlers"),
	}
}

// HandleAnalyze handles POST /analyze. It blocks until the run finishes.
// A client disconnect does not cancel the run; it is bounded by runTimeout.
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	input, err := h.parseInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := h.runContext(c.UserContext())
	defer cancel()

	var progress []models.ProgressData
	result, err := h.analyzer.Analyze(ctx, input, func(event services.ProgressEvent) {
		progress = append(progress, toProgressData(event))
	})
	if result == nil {
		return h.noResult(c, err)
	}

	return c.Status(statusFor(result)).JSON(buildResponse(result, progress))
}

func (h *AnalyzeHandler) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if h.runTimeout > 0 {
		return context.WithTimeout(parent, h.runTimeout)
	}
	return context.WithCancel(parent)
}

func (h *AnalyzeHandler) noResult(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrNoRunSlot) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "too many analyses in progress, please retry shortly",
		})
	}

	h.logger.Error("analysis returned no result", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "analysis could not be started",
	})
}
