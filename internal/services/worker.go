package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrNoRunSlot is returned when the caller's context ends before a run slot
// frees up.
var ErrNoRunSlot = errors.New("no analysis slot available")

// RunLimiter caps how many analyses run at once so a burst of uploads
// cannot exhaust the generation quota.
type RunLimiter struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	logger   *zap.Logger
}

func NewRunLimiter(concurrency int, logger *zap.Logger) *RunLimiter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RunLimiter{
		sem:      semaphore.NewWeighted(int64(concurrency)),
		capacity: concurrency,
		logger:   logger.Named("limiter"),
	}
}

// Do waits for a free slot, then runs fn in the caller's goroutine.
func (l *RunLimiter) Do(ctx context.Context, fn func(ctx context.Context)) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		l.logger.Warn("gave up waiting for an analysis slot",
			zap.Int("capacity", l.capacity),
			zap.Int64("in_flight", l.inFlight.Load()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrNoRunSlot, err)
	}
	defer l.sem.Release(1)

	running := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	l.logger.Debug("analysis slot acquired", zap.Int64("in_flight", running), zap.Int("capacity", l.capacity))

	fn(ctx)
	return nil
}

func (l *RunLimiter) InFlight() int {
	return int(l.inFlight.Load())
}

func (l *RunLimiter) Capacity() int {
	return l.capacity
}

// AnalyzerService is what the transport layers call.
type AnalyzerService interface {
	Analyze(ctx context.Context, in RunInput, progress ProgressFunc) (*RunResult, error)
}

type analyzerService struct {
	orchestrator *Orchestrator
	limiter      *RunLimiter
}

func NewAnalyzerService(orchestrator *Orchestrator, limiter *RunLimiter) AnalyzerService {
	return &analyzerService{orchestrator: orchestrator, limiter: limiter}
}

// Analyze implements AnalyzerService. The result is nil only when no slot
// could be acquired.
func (a *analyzerService) Analyze(ctx context.Context, in RunInput, progress ProgressFunc) (*RunResult, error) {
	var (
		result *RunResult
		runErr error
	)
	if err := a.limiter.Do(ctx, func(ctx context.Context) {
		result, runErr = a.orchestrator.Run(ctx, in, progress)
	}); err != nil {
		return nil, err
	}
	return result, runErr
}
