package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-analyzer/internal/models"
	"alfredoptarigan/resume-analyzer/internal/services"
)

const (
	eventProgress = "progress"
	eventSummary  = "summary"
	eventResult   = "result"
)

// streamResult is the final SSE event. It carries the status code the
// blocking endpoint would have answered with.
type streamResult struct {
	models.AnalyzeResponse
	StatusCode int `json:"status_code"`
}

// HandleAnalyzeStream handles POST /analyze/stream. Progress is pushed as
// server-sent events while the run executes; the last event is the result.
func (h *AnalyzeHandler) HandleAnalyzeStream(c *fiber.Ctx) error {
	input, err := h.parseInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The stream writer runs after this handler returns, so the fiber.Ctx
	// must not be touched inside it.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := h.runContext(context.Background())
		defer cancel()

		sw := &sseWriter{w: w, cancel: cancel, logger: h.logger}

		var progress []models.ProgressData
		result, err := h.analyzer.Analyze(ctx, input, func(event services.ProgressEvent) {
			data := toProgressData(event)
			progress = append(progress, data)

			name := eventProgress
			if event.Summary != "" {
				name = eventSummary
			}
			sw.send(name, data)
		})

		if result == nil {
			status := fiber.StatusInternalServerError
			message := "analysis could not be started"
			if errors.Is(err, services.ErrNoRunSlot) {
				status = fiber.StatusServiceUnavailable
				message = "too many analyses in progress, please retry shortly"
			}
			sw.send(eventResult, fiber.Map{
				"status":      models.StatusFailed,
				"status_code": status,
				"error":       fiber.Map{"message": message},
			})
			return
		}

		sw.send(eventResult, streamResult{
			AnalyzeResponse: buildResponse(result, progress),
			StatusCode:      statusFor(result),
		})
	})

	return nil
}

// sseWriter serializes writes and cancels the run once the client is gone.
type sseWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	cancel context.CancelFunc
	broken bool
	logger *zap.Logger
}

func (s *sseWriter) send(event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode stream event", zap.String("event", event), zap.Error(err))
		return
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		s.disconnect(event, err)
		return
	}
	if err := s.w.Flush(); err != nil {
		s.disconnect(event, err)
	}
}

func (s *sseWriter) disconnect(event string, err error) {
	s.broken = true
	s.logger.Info("stream client disconnected, cancelling analysis", zap.String("event", event), zap.Error(err))
	s.cancel()
}
