package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrEmptyGeneration is returned when the generation service answers
	// with no usable text.
	ErrEmptyGeneration = errors.New("generation service returned empty text")

	// ErrEmptyDocumentText marks a document that parsed but holds no text
	// layer, e.g. a scanned image PDF.
	ErrEmptyDocumentText = errors.New("document contains no extractable text")

	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// MissingInputError is raised before any work starts when a required input
// is absent.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Field)
}

type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("failed to extract document text: %v", e.Err)
	}
	return fmt.Sprintf("failed to extract text from %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TemplateMismatchError means a prompt template and its variables disagree.
// It is always a programming defect.
type TemplateMismatchError struct {
	Template string
	Missing  []string
	Extra    []string
	// Invalid lists slot or variable names outside the [a-z][a-z0-9_]* grammar.
	Invalid  []string
	Unknown  bool
}

func (e *TemplateMismatchError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("prompt template %q is not registered", e.Template)
	}

	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid slot names "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("prompt template %q variable mismatch: %s", e.Template, strings.Join(parts, "; "))
}

// EmptyInputError is a stage precondition failure.
type EmptyInputError struct {
	Kind SummaryKind
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s input is empty", e.Kind)
}

type GenerationFailedError struct {
	Stage string
	Kind  SummaryKind
	Err   error
}

func (e *GenerationFailedError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s %s: generation failed: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

type TimeoutError struct {
	Stage   string
	Kind    SummaryKind
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	name := e.Stage
	if e.Kind != "" {
		name = fmt.Sprintf("%s %s", e.Stage, e.Kind)
	}
	if e.Timeout > 0 {
		return fmt.Sprintf("%s: timed out after %s", name, e.Timeout)
	}
	return fmt.Sprintf("%s: deadline exceeded", name)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// PipelineError is the terminal failure of a run: the state the run was in
// and what went wrong there.
type PipelineError struct {
	State State
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed in %s: %v", e.State, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// IsDefect reports whether the failure comes from a programming error
// rather than the user or the environment.
func (e *PipelineError) IsDefect() bool {
	return IsDefect(e.Err)
}

// UserMessage renders the failure for end users. Defect details stay in
// the logs.
func (e *PipelineError) UserMessage() string {
	if e.IsDefect() {
		return "an internal error occurred while " + e.State.Activity() + "; please try again later"
	}

	var missing *MissingInputError
	if errors.As(e.Err, &missing) {
		return "please provide both the job description and a resume document (missing " + missing.Field + ")"
	}

	var extraction *ExtractionError
	if errors.As(e.Err, &extraction) {
		return "failed while " + e.State.Activity() + ": " + causeText(extraction.Err) +
			"; please upload a PDF, DOCX or text file with selectable text"
	}

	var timeout *TimeoutError
	if errors.As(e.Err, &timeout) {
		return "failed while " + e.State.Activity() + ": the generation service did not answer in time"
	}

	if errors.Is(e.Err, context.Canceled) {
		return "the analysis was cancelled while " + e.State.Activity()
	}

	var generation *GenerationFailedError
	if errors.As(e.Err, &generation) {
		return "failed while " + e.State.Activity() + ": " + causeText(generation.Err)
	}

	return "failed while " + e.State.Activity() + ": " + causeText(e.Err)
}

// Cause is the diagnostic text shown next to the user message. Empty for
// defects.
func (e *PipelineError) Cause() string {
	if e.IsDefect() {
		return ""
	}
	return e.Err.Error()
}

func IsDefect(err error) bool {
	var mismatch *TemplateMismatchError
	if errors.As(err, &mismatch) {
		return true
	}
	var empty *EmptyInputError
	return errors.As(err, &empty)
}

func isTransient(err error) bool {
	var generation *GenerationFailedError
	if errors.As(err, &generation) {
		return true
	}
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
