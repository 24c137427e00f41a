package services

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	promptResume   = "resume_summary"
	promptCriteria = "jd_summary"
	promptAnalysis = "analysis"

	fakeResumeSummary   = "Go engineer, 6 years, Kubernetes and PostgreSQL."
	fakeCriteriaSummary = "Senior backend role: Go, gRPC, Kafka."
)

const sampleReport = `## Match Percentage
78%

## Missing Skills
- gRPC
- Kafka

## Improvement Suggestions
- Quantify the impact of the migration project.

## General Feedback
Clear structure and strong action verbs.`

// promptKind tells which stage rendered a prompt from its fixed wording.
func promptKind(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "Summarize the following resume"):
		return promptResume
	case strings.HasPrefix(prompt, "Summarize the following job description"):
		return promptCriteria
	case strings.Contains(prompt, "expert resume evaluator"):
		return promptAnalysis
	default:
		return "unknown"
	}
}

func defaultReply(prompt string) string {
	switch promptKind(prompt) {
	case promptResume:
		return fakeResumeSummary
	case promptCriteria:
		return fakeCriteriaSummary
	default:
		return sampleReport
	}
}

// scriptedClient records every prompt. reply, when set, decides each
// answer from the zero-based call index and the prompt.
type scriptedClient struct {
	mu      sync.Mutex
	prompts []string
	reply   func(ctx context.Context, call int, prompt string) (string, error)
}

func (c *scriptedClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	call := len(c.prompts)
	c.prompts = append(c.prompts, prompt)
	reply := c.reply
	c.mu.Unlock()

	if reply == nil {
		return defaultReply(prompt), nil
	}
	return reply(ctx, call, prompt)
}

func (c *scriptedClient) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	kinds := make([]string, 0, len(c.prompts))
	for _, p := range c.prompts {
		kinds = append(kinds, promptKind(p))
	}
	return kinds
}

func (c *scriptedClient) promptsOf(kind string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, p := range c.prompts {
		if promptKind(p) == kind {
			out = append(out, p)
		}
	}
	return out
}

// waitForCancel blocks until ctx ends, like a generation call that never
// answers.
func waitForCancel(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type stubExtractor struct {
	text  string
	err   error
	block bool
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, _ *Document) (string, error) {
	s.calls++
	if s.block {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Minute):
		}
	}
	return s.text, s.err
}

func textDocument(content string) *Document {
	return &Document{Filename: "resume.txt", ContentType: "text/plain", Data: []byte(content)}
}

type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) record(event ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()

	states := make([]State, 0, len(l.events))
	for _, e := range l.events {
		states = append(states, e.State)
	}
	return states
}
