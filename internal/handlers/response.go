package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-analyzer/internal/models"
	"alfredoptarigan/resume-analyzer/internal/services"
)

func buildResponse(result *services.RunResult, progress []models.ProgressData) models.AnalyzeResponse {
	if progress == nil {
		progress = []models.ProgressData{}
	}

	response := models.AnalyzeResponse{
		RunID:                 result.RunID.String(),
		Status:                models.StatusDone,
		ResumeSummary:         string(result.ProfileSummary),
		JobDescriptionSummary: string(result.CriteriaSummary),
		Progress:              progress,
	}

	if result.Err != nil {
		response.Status = models.StatusFailed
		response.Error = &models.ErrorData{
			Stage:   string(result.FailedAt),
			Message: result.Err.UserMessage(),
			Cause:   result.Err.Cause(),
		}
		return response
	}

	response.Report = string(result.Report)
	check := services.CheckReport(result.Report)
	response.ReportCheck = &models.ReportCheckData{
		Complete:        check.Complete(),
		Found:           sectionNames(check.Found),
		Missing:         sectionNames(check.Missing),
		MatchPercentage: check.MatchPercentage,
	}

	return response
}

func statusFor(result *services.RunResult) int {
	if result.Err == nil {
		return fiber.StatusOK
	}

	err := result.Err.Err
	var (
		missing    *services.MissingInputError
		extraction *services.ExtractionError
		timeout    *services.TimeoutError
		generation *services.GenerationFailedError
	)
	switch {
	case result.Err.IsDefect():
		return fiber.StatusInternalServerError
	case errors.As(err, &missing):
		return fiber.StatusBadRequest
	case errors.As(err, &extraction):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &timeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return fiber.StatusRequestTimeout
	case errors.As(err, &generation):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func toProgressData(event services.ProgressEvent) models.ProgressData {
	return models.ProgressData{
		State:   string(event.State),
		Message: event.Message,
		Summary: string(event.Summary),
		Kind:    string(event.Kind),
		At:      event.At,
	}
}

func sectionNames(sections []services.ReportSection) []string {
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, string(s))
	}
	return names
}
