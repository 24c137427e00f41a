package services

import (
	"context"
	"strings"
)

// AnalysisReport is the markdown comparison report, returned exactly as the
// generation service wrote it (surrounding whitespace trimmed).
type AnalysisReport string

type ComparisonStage struct {
	prompts *PromptRegistry
	client  GenerationClient
}

func NewComparisonStage(prompts *PromptRegistry, client GenerationClient) *ComparisonStage {
	return &ComparisonStage{prompts: prompts, client: client}
}

// Compare asks for the match analysis of a résumé summary against a job
// description summary. The report structure is not checked here; see
// CheckReport.
func (c *ComparisonStage) Compare(ctx context.Context, profileSummary, criteriaSummary Summary) (AnalysisReport, error) {
	if strings.TrimSpace(string(profileSummary)) == "" {
		return "", &EmptyInputError{Kind: KindProfile}
	}
	if strings.TrimSpace(string(criteriaSummary)) == "" {
		return "", &EmptyInputError{Kind: KindCriteria}
	}

	prompt, err := c.prompts.Render(TemplateResumeAnalysis, map[string]string{
		"resume_summary": string(profileSummary),
		"jd_summary":     string(criteriaSummary),
	})
	if err != nil {
		return "", err
	}

	text, err := c.client.Generate(ctx, prompt)
	if err != nil {
		return "", classifyGenerationError(ctx, stageCompare, "", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &GenerationFailedError{Stage: stageCompare, Err: ErrEmptyGeneration}
	}

	return AnalysisReport(text), nil
}
