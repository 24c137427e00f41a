package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/resume-analyzer/internal/config"
)

// State is a step of the analysis state machine.
type State string

const (
	StateIdle                State = "idle"
	StateExtractingText      State = "extracting_text"
	StateSummarizingProfile  State = "summarizing_profile"
	StateSummarizingCriteria State = "summarizing_criteria"
	StateComparing           State = "comparing"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

// Activity describes the state as an action, for user-facing messages.
func (s State) Activity() string {
	switch s {
	case StateIdle:
		return "checking the inputs"
	case StateExtractingText:
		return "extracting text from the resume"
	case StateSummarizingProfile:
		return "summarizing the candidate profile"
	case StateSummarizingCriteria:
		return "summarizing the job description"
	case StateComparing:
		return "comparing the resume with the job description"
	case StateDone:
		return "finishing the analysis"
	default:
		return string(s)
	}
}

func stateForKind(kind SummaryKind) State {
	if kind == KindCriteria {
		return StateSummarizingCriteria
	}
	return StateSummarizingProfile
}

// RetryPolicy bounds how often a failing generation call is repeated.
// MaxAttempts of 1 means no retries.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Backoff returns the wait before the attempt following the given one:
// InitialDelay doubled per attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		if delay > math.MaxInt64/2 {
			delay = math.MaxInt64
			break
		}
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

type PipelineOptions struct {
	// ConcurrentSummaries runs the résumé and job description summaries at
	// the same time. The first failure cancels the other branch.
	ConcurrentSummaries bool
	// StageTimeout applies to every single generation call. Zero disables it.
	StageTimeout time.Duration
	// ExtractTimeout applies to document text extraction. Zero disables it.
	ExtractTimeout time.Duration
	Retry          RetryPolicy
}

func NewPipelineOptions(pipeline config.PipelineConfig, retry config.RetryConfig) PipelineOptions {
	return PipelineOptions{
		ConcurrentSummaries: pipeline.ConcurrentSummaries,
		StageTimeout:        pipeline.StageTimeout,
		ExtractTimeout:      pipeline.ExtractTimeout,
		Retry: RetryPolicy{
			MaxAttempts:  retry.MaxAttempts,
			InitialDelay: retry.InitialDelay,
			MaxDelay:     retry.MaxDelay,
		},
	}
}

type RunInput struct {
	CriteriaText string
	// Document is nil when no file was supplied.
	Document *Document
}

// RunResult holds everything a run produced. Summaries that completed
// before a failure are kept.
type RunResult struct {
	RunID           uuid.UUID
	State           State
	FailedAt        State
	ProfileSummary  Summary
	CriteriaSummary Summary
	Report          AnalysisReport
	Err             *PipelineError
	GenerationCalls map[State]int
}

type ProgressEvent struct {
	RunID   uuid.UUID
	State   State
	Message string
	// Kind and Summary are set when a summary has just become available.
	Kind    SummaryKind
	Summary Summary
	Err     *PipelineError
	At      time.Time
}

type ProgressFunc func(ProgressEvent)

// Orchestrator runs extraction, the two summaries and the comparison in
// order. It keeps no per-run state and serves concurrent runs.
type Orchestrator struct {
	extractor  TextExtractor
	summarizer *SummarizationStage
	comparator *ComparisonStage
	opts       PipelineOptions
	logger     *zap.Logger
}

func NewOrchestrator(
	extractor TextExtractor,
	client GenerationClient,
	prompts *PromptRegistry,
	opts PipelineOptions,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		extractor:  extractor,
		summarizer: NewSummarizationStage(prompts, client),
		comparator: NewComparisonStage(prompts, client),
		opts:       opts,
		logger:     logger.Named("pipeline"),
	}
}

// Run executes one analysis. The returned result is never nil; on failure
// the error is a *PipelineError, also stored in the result.
func (o *Orchestrator) Run(ctx context.Context, in RunInput, progress ProgressFunc) (*RunResult, error) {
	rc := o.newRunContext(progress)
	rc.logger.Info("analysis started", zap.Bool("concurrent_summaries", o.opts.ConcurrentSummaries))

	if strings.TrimSpace(in.CriteriaText) == "" {
		return rc.fail(StateIdle, &MissingInputError{Field: "job_description"})
	}
	if in.Document == nil {
		return rc.fail(StateIdle, &MissingInputError{Field: "resume"})
	}

	rc.enter(StateExtractingText, "Extracting text from the resume...")
	profileText, err := o.extract(ctx, in.Document)
	if err != nil {
		return rc.fail(StateExtractingText, err)
	}
	rc.logger.Info("resume text extracted", zap.Int("chars", len(profileText)))

	if o.opts.ConcurrentSummaries {
		err = o.summarizeConcurrently(ctx, rc, profileText, in.CriteriaText)
	} else {
		err = o.summarizeSequentially(ctx, rc, profileText, in.CriteriaText)
	}
	if err != nil {
		var perr *PipelineError
		if errors.As(err, &perr) {
			return rc.fail(perr.State, perr.Err)
		}
		return rc.fail(rc.current(), err)
	}

	rc.enter(StateComparing, "Analyzing summarized resume and job description...")
	profileSummary, criteriaSummary := rc.summaries()
	var report AnalysisReport
	err = o.withRetry(ctx, rc, StateComparing, func(callCtx context.Context) error {
		var cerr error
		report, cerr = o.comparator.Compare(callCtx, profileSummary, criteriaSummary)
		return cerr
	})
	if err != nil {
		return rc.fail(StateComparing, err)
	}

	return rc.done(report), nil
}

type extractOutcome struct {
	text string
	err  error
}

// extract runs the extractor under its own deadline. An extractor that
// ignores the context keeps running in the background until it returns,
// but the run stops waiting for it.
func (o *Orchestrator) extract(parent context.Context, doc *Document) (string, error) {
	ctx := parent
	if o.opts.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ExtractTimeout)
		defer cancel()
	}

	done := make(chan extractOutcome, 1)
	go func() {
		text, err := o.extractor.Extract(ctx, doc)
		done <- extractOutcome{text: text, err: err}
	}()

	var outcome extractOutcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		outcome = extractOutcome{err: ctx.Err()}
	}

	if outcome.err != nil {
		if errors.Is(outcome.err, context.DeadlineExceeded) {
			timeout := &TimeoutError{Stage: "extract"}
			if parent.Err() == nil {
				timeout.Timeout = o.opts.ExtractTimeout
			}
			return "", timeout
		}
		if errors.Is(outcome.err, context.Canceled) {
			return "", outcome.err
		}
		var extraction *ExtractionError
		if errors.As(outcome.err, &extraction) {
			return "", extraction
		}
		return "", &ExtractionError{Filename: doc.Filename, Err: outcome.err}
	}

	if strings.TrimSpace(outcome.text) == "" {
		return "", &ExtractionError{Filename: doc.Filename, Err: ErrEmptyDocumentText}
	}
	return outcome.text, nil
}

func (o *Orchestrator) summarize(ctx context.Context, rc *runContext, kind SummaryKind, rawText string) (Summary, error) {
	var summary Summary
	err := o.withRetry(ctx, rc, stateForKind(kind), func(callCtx context.Context) error {
		var serr error
		summary, serr = o.summarizer.Summarize(callCtx, kind, rawText)
		return serr
	})
	return summary, err
}

func (o *Orchestrator) summarizeSequentially(ctx context.Context, rc *runContext, profileText, criteriaText string) error {
	rc.enter(StateSummarizingProfile, "Summarizing the resume...")
	profile, err := o.summarize(ctx, rc, KindProfile, profileText)
	if err != nil {
		return &PipelineError{State: StateSummarizingProfile, Err: err}
	}
	rc.setSummary(KindProfile, profile)

	rc.enter(StateSummarizingCriteria, "Summarizing the job description...")
	criteria, err := o.summarize(ctx, rc, KindCriteria, criteriaText)
	if err != nil {
		return &PipelineError{State: StateSummarizingCriteria, Err: err}
	}
	rc.setSummary(KindCriteria, criteria)

	return nil
}

// summarizeConcurrently joins both branches before returning. When both
// fail, a genuine failure wins over a cancellation caused by the sibling,
// and the profile branch wins a tie.
func (o *Orchestrator) summarizeConcurrently(ctx context.Context, rc *runContext, profileText, criteriaText string) error {
	rc.enter(StateSummarizingProfile, "Summarizing the resume...")
	rc.enter(StateSummarizingCriteria, "Summarizing the job description...")

	var profileErr, criteriaErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := o.summarize(gctx, rc, KindProfile, profileText)
		if err != nil {
			profileErr = err
			return err
		}
		rc.setSummary(KindProfile, summary)
		return nil
	})
	g.Go(func() error {
		summary, err := o.summarize(gctx, rc, KindCriteria, criteriaText)
		if err != nil {
			criteriaErr = err
			return err
		}
		rc.setSummary(KindCriteria, summary)
		return nil
	})
	_ = g.Wait()

	cancelledBySibling := func(err error) bool {
		return errors.Is(err, context.Canceled) && ctx.Err() == nil
	}

	switch {
	case profileErr != nil && !cancelledBySibling(profileErr):
		return &PipelineError{State: StateSummarizingProfile, Err: profileErr}
	case criteriaErr != nil && !cancelledBySibling(criteriaErr):
		return &PipelineError{State: StateSummarizingCriteria, Err: criteriaErr}
	case profileErr != nil:
		return &PipelineError{State: StateSummarizingProfile, Err: profileErr}
	case criteriaErr != nil:
		return &PipelineError{State: StateSummarizingCriteria, Err: criteriaErr}
	}
	return nil
}

// withRetry performs call under the retry policy. Every attempt is a fresh
// generation call with its own deadline. Only transient failures repeat.
func (o *Orchestrator) withRetry(ctx context.Context, rc *runContext, state State, call func(context.Context) error) error {
	maxAttempts := o.opts.Retry.attempts()

	for attempt := 1; ; attempt++ {
		callCtx, cancel := o.callContext(ctx)
		rc.countCall(state)
		err := call(callCtx)
		cancel()

		if err == nil {
			return nil
		}

		// A deadline inherited from the caller is not the stage timeout.
		var timeout *TimeoutError
		if errors.As(err, &timeout) && timeout.Timeout == 0 && ctx.Err() == nil {
			timeout.Timeout = o.opts.StageTimeout
		}

		if attempt >= maxAttempts || !isTransient(err) || ctx.Err() != nil {
			return err
		}

		delay := o.opts.Retry.Backoff(attempt)
		rc.logger.Warn("generation call failed, retrying",
			zap.String("state", string(state)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.StageTimeout > 0 {
		return context.WithTimeout(ctx, o.opts.StageTimeout)
	}
	return context.WithCancel(ctx)
}

// runContext is the state of one invocation. Summary branches may run
// concurrently, so every mutation goes through mu.
type runContext struct {
	mu       sync.Mutex
	result   *RunResult
	state    State
	progress ProgressFunc
	logger   *zap.Logger
}

func (o *Orchestrator) newRunContext(progress ProgressFunc) *runContext {
	runID := uuid.New()
	return &runContext{
		result: &RunResult{
			RunID:           runID,
			State:           StateIdle,
			GenerationCalls: make(map[State]int),
		},
		state:    StateIdle,
		progress: progress,
		logger:   o.logger.With(zap.String("run_id", runID.String())),
	}
}

func (rc *runContext) enter(state State, message string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.state = state
	rc.result.State = state
	rc.logger.Info("state changed", zap.String("state", string(state)))
	rc.emitLocked(ProgressEvent{State: state, Message: message})
}

func (rc *runContext) current() State {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

func (rc *runContext) countCall(state State) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.result.GenerationCalls[state]++
}

func (rc *runContext) setSummary(kind SummaryKind, summary Summary) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	message := "Resume summary ready"
	if kind == KindCriteria {
		rc.result.CriteriaSummary = summary
		message = "Job description summary ready"
	} else {
		rc.result.ProfileSummary = summary
	}

	rc.logger.Info("summary ready", zap.String("kind", string(kind)), zap.Int("chars", len(summary)))
	rc.emitLocked(ProgressEvent{State: stateForKind(kind), Message: message, Kind: kind, Summary: summary})
}

func (rc *runContext) summaries() (Summary, Summary) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.result.ProfileSummary, rc.result.CriteriaSummary
}

func (rc *runContext) fail(state State, err error) (*RunResult, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	perr := &PipelineError{State: state, Err: err}
	rc.state = StateFailed
	rc.result.State = StateFailed
	rc.result.FailedAt = state
	rc.result.Err = perr

	if perr.IsDefect() {
		rc.logger.Error("analysis aborted by a defect", zap.String("failed_at", string(state)), zap.Error(err))
	} else {
		rc.logger.Warn("analysis failed", zap.String("failed_at", string(state)), zap.Error(err))
	}
	rc.emitLocked(ProgressEvent{State: StateFailed, Message: perr.UserMessage(), Err: perr})

	return rc.result, perr
}

func (rc *runContext) done(report AnalysisReport) *RunResult {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.state = StateDone
	rc.result.State = StateDone
	rc.result.Report = report

	rc.logger.Info("analysis completed",
		zap.Int("report_chars", len(report)),
		zap.Any("generation_calls", rc.result.GenerationCalls),
	)
	rc.emitLocked(ProgressEvent{State: StateDone, Message: "Analysis complete"})

	return rc.result
}

func (rc *runContext) emitLocked(event ProgressEvent) {
	if rc.progress == nil {
		return
	}
	event.RunID = rc.result.RunID
	event.At = time.Now()
	rc.progress(event)
}

// String is used in logs and CLI output.
func (r *RunResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("run %s failed at %s: %v", r.RunID, r.FailedAt, r.Err.Err)
	}
	return fmt.Sprintf("run %s %s", r.RunID, r.State)
}
