package services

import (
	"context"
	"errors"
	"strings"
)

const (
	stageSummarize = "summarize"
	stageCompare   = "compare"
)

// SummaryKind names which raw input a summary was made from.
type SummaryKind string

const (
	KindProfile  SummaryKind = "profile"
	KindCriteria SummaryKind = "criteria"
)

// Summary is condensed text produced by the generation service. Never empty.
type Summary string

// SummarizationStage condenses one raw document with a single generation
// call. Retries are the caller's business.
type SummarizationStage struct {
	prompts *PromptRegistry
	client  GenerationClient
}

func NewSummarizationStage(prompts *PromptRegistry, client GenerationClient) *SummarizationStage {
	return &SummarizationStage{prompts: prompts, client: client}
}

func (s *SummarizationStage) Summarize(ctx context.Context, kind SummaryKind, rawText string) (Summary, error) {
	if strings.TrimSpace(rawText) == "" {
		return "", &EmptyInputError{Kind: kind}
	}

	var (
		templateName string
		variables    map[string]string
	)
	switch kind {
	case KindProfile:
		templateName = TemplateResumeSummary
		variables = map[string]string{"resume": rawText}
	case KindCriteria:
		templateName = TemplateJobDescriptionSummary
		variables = map[string]string{"job_description": rawText}
	default:
		return "", &TemplateMismatchError{Template: "summary:" + string(kind), Unknown: true}
	}

	prompt, err := s.prompts.Render(templateName, variables)
	if err != nil {
		return "", err
	}

	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return "", classifyGenerationError(ctx, stageSummarize, kind, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &GenerationFailedError{Stage: stageSummarize, Kind: kind, Err: ErrEmptyGeneration}
	}

	return Summary(text), nil
}

// classifyGenerationError separates deadlines and cancellations from
// service failures. Client libraries do not always wrap context errors, so
// the call's own context is consulted as well.
func classifyGenerationError(ctx context.Context, stage string, kind SummaryKind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Stage: stage, Kind: kind}
	}
	if !errors.Is(err, context.Canceled) && errors.Is(ctx.Err(), context.Canceled) {
		err = ctx.Err()
	}
	return &GenerationFailedError{Stage: stage, Kind: kind, Err: err}
}
