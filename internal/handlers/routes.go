package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts the analysis endpoints on router.
func (h *AnalyzeHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.HandleAnalyze)
	router.Post("/analyze/stream", h.HandleAnalyzeStream)
}
