package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Pipeline run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// errorSampleSize caps the error messages exposed per stage in the summary.
const errorSampleSize = 5

// ErrAlreadyRunning is returned when a run is triggered while another run is
// in flight. Triggers are rejected, never queued.
var ErrAlreadyRunning = errors.New("pipeline already running")

// StageOutcome is the per-stage aggregate returned by every batch operation:
// success count, error count, and the captured per-symbol error messages.
type StageOutcome struct {
	SuccessCount int
	ErrorCount   int
	Errors       []string
}

// StageResult is one stage's entry in the run summary.
type StageResult struct {
	Name         string   `json:"name"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors"`
}

// RunSummary is the externally visible snapshot of a pipeline run. It is
// queryable while the run is still writing stages and after completion.
type RunSummary struct {
	Status     string        `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Stages     []StageResult `json:"stages"`
}

// runTracker owns the single "current run" state. One-at-a-time execution is
// enforced with a compare-and-set on the running flag; the summary snapshot
// is guarded separately so readers never block a run for long.
type runTracker struct {
	running atomic.Bool

	mu      sync.RWMutex
	current *RunSummary
}

// begin claims the running flag and replaces the current summary.
func (t *runTracker) begin() error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	t.mu.Lock()
	t.current = &RunSummary{
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	t.mu.Unlock()
	return nil
}

// appendStage records a completed stage on the current run.
func (t *runTracker) appendStage(result StageResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.current.Stages = append(t.current.Stages, result)
	}
}

// finish stamps the final status and releases the running flag.
func (t *runTracker) finish(status string) {
	t.mu.Lock()
	if t.current != nil {
		now := time.Now().UTC()
		t.current.Status = status
		t.current.FinishedAt = &now
	}
	t.mu.Unlock()
	t.running.Store(false)
}

// Summary returns a copy of the current run state with per-stage errors
// sampled down, or nil when no run has started yet.
func (t *runTracker) Summary() *RunSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return nil
	}

	out := RunSummary{
		Status:    t.current.Status,
		StartedAt: t.current.StartedAt,
	}
	if t.current.FinishedAt != nil {
		finished := *t.current.FinishedAt
		out.FinishedAt = &finished
	}
	out.Stages = make([]StageResult, len(t.current.Stages))
	for i, s := range t.current.Stages {
		sampled := s.Errors
		if len(sampled) > errorSampleSize {
			sampled = sampled[:errorSampleSize]
		}
		out.Stages[i] = StageResult{
			Name:         s.Name,
			SuccessCount: s.SuccessCount,
			ErrorCount:   s.ErrorCount,
			Errors:       append([]string(nil), sampled...),
		}
	}
	return &out
}
