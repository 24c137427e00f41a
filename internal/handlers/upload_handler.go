package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-analyzer/internal/services"
)

// parseInput reads the multipart form. A missing field is not an error
// here; the pipeline reports missing inputs itself.
func (h *AnalyzeHandler) parseInput(c *fiber.Ctx) (services.RunInput, error) {
	input := services.RunInput{
		CriteriaText: c.FormValue("job_description"),
	}

	fileHeader, err := c.FormFile("resume")
	if err != nil {
		return input, nil
	}

	doc, err := h.uploads.ReadDocument(fileHeader)
	if err != nil {
		if errors.Is(err, services.ErrFileTooLarge) || errors.Is(err, services.ErrInvalidFileExtension) {
			return input, err
		}
		return input, fmt.Errorf("failed to read resume upload: %w", err)
	}
	input.Document = doc

	return input, nil
}
