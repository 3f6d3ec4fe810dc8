// Package coordinator manages client-driven submission, polling, and
// result-merging against the externally hosted matching service.
//
// It owns the suggestion merge store and the shared busy flags, and runs
// three kinds of scheduled work: a per-session progress ticker, a
// per-session timeout watchdog, and a repeating queue poller. All shared
// state lives behind one mutex; timers and requests run on goroutines that
// re-enter through that mutex, and a generation counter per subsystem
// drops callbacks that outlive the session or poller that armed them.
// Timeouts and cancellation also cancel the underlying request context,
// so abandoned work is aborted at the transport layer rather than merely
// ignored.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/store"
)

// Config holds timing and sizing knobs for the coordinator.
type Config struct {
	// SoftCap is the advisory batch size for manual submission. Exceeding
	// it warns once and proceeds with the full batch; it never truncates.
	SoftCap int
	// MaxSuggestions is the per-row candidate count requested from the
	// service.
	MaxSuggestions int
	// StepCeiling is the highest simulated progress step; the ticker holds
	// there until the session resolves.
	StepCeiling int
	// StepInterval is the simulated progress tick period.
	StepInterval time.Duration
	// SessionTimeout is the wall-clock watchdog bound for one manual
	// submission.
	SessionTimeout time.Duration
	// PollInterval is the queue poller tick period.
	PollInterval time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		SoftCap:        10,
		MaxSuggestions: 3,
		StepCeiling:    5,
		StepInterval:   2 * time.Second,
		SessionTimeout: 5 * time.Minute,
		PollInterval:   time.Second,
	}
}

// SessionStatus tracks the manual analysis state machine.
type SessionStatus string

// Session states. Completed, TimedOut, and Cancelled are transitional;
// the session settles back to Idle before the status is observable.
const (
	SessionIdle      SessionStatus = "IDLE"
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionTimedOut  SessionStatus = "TIMED_OUT"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Coordinator drives manual submissions, background queue observation, and
// per-row decisions against the matching service.
type Coordinator struct {
	backend  Backend
	store    *store.SuggestionStore
	notifier Notifier
	journal  DecisionSink
	cfg      Config

	mu sync.Mutex

	// Analysis session state.
	sessionStatus SessionStatus
	sessionGen    uint64
	sessionCancel context.CancelFunc
	stepIndex     int
	watchdogArmed bool

	// Queue poller state.
	pollGen           uint64
	pollCancel        context.CancelFunc
	queueStatus       *model.QueueSnapshot
	isQueueProcessing bool
	isQueuePaused     bool

	// Shared busy flag read by the presentation layer; written by both the
	// analysis session and the queue poller.
	isAnalyzing bool

	// Per-row in-flight decision guard.
	inflight map[int]struct{}

	// Backend-owned match results, cached after each decision refresh.
	results []model.MatchResult
}

// New creates a coordinator with the default configuration.
func New(backend Backend, suggestions *store.SuggestionStore, notifier Notifier) *Coordinator {
	return NewWithConfig(backend, suggestions, notifier, DefaultConfig())
}

// NewWithConfig creates a coordinator with a custom configuration.
func NewWithConfig(backend Backend, suggestions *store.SuggestionStore, notifier Notifier, cfg Config) *Coordinator {
	def := DefaultConfig()
	if cfg.SoftCap <= 0 {
		cfg.SoftCap = def.SoftCap
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if cfg.StepCeiling <= 0 {
		cfg.StepCeiling = def.StepCeiling
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = def.StepInterval
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = def.SessionTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}

	return &Coordinator{
		backend:       backend,
		store:         suggestions,
		notifier:      notifier,
		cfg:           cfg,
		sessionStatus: SessionIdle,
		inflight:      make(map[int]struct{}),
	}
}

// Config returns the coordinator's effective configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// SetDecisionSink attaches an optional journal for approve/reject outcomes.
func (c *Coordinator) SetDecisionSink(sink DecisionSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal = sink
}

// Store exposes the suggestion merge store.
func (c *Coordinator) Store() *store.SuggestionStore {
	return c.store
}

// Suggestions returns the cached candidate groups, ordered by row index.
func (c *Coordinator) Suggestions() []model.CandidateGroup {
	return c.store.Groups()
}

// RefreshSuggestions performs a one-shot fetch of the service's full
// candidate list and replaces the cache with it.
func (c *Coordinator) RefreshSuggestions(ctx context.Context, projectID string) error {
	candidates, err := c.backend.Suggestions(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to fetch suggestions: %w", err)
	}

	c.store.ReplaceAll(candidates)
	return nil
}

// IsAnalyzing reports the shared busy flag.
func (c *Coordinator) IsAnalyzing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAnalyzing
}

// ThinkingStep returns the current simulated progress step of the manual
// analysis session.
func (c *Coordinator) ThinkingStep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepIndex
}

// SessionStatus returns the analysis session state.
func (c *Coordinator) SessionStatus() SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionStatus
}

// QueueStatus returns the last observed backlog snapshot, or nil before
// the first observation.
func (c *Coordinator) QueueStatus() *model.QueueSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queueStatus == nil {
		return nil
	}
	snapshot := *c.queueStatus
	return &snapshot
}

// IsQueueProcessing reports whether the observed backlog has outstanding
// work.
func (c *Coordinator) IsQueueProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isQueueProcessing
}

// IsQueuePaused reports the local pause flag.
func (c *Coordinator) IsQueuePaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isQueuePaused
}

// Results returns the cached backend match results from the most recent
// decision refresh.
func (c *Coordinator) Results() []model.MatchResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make([]model.MatchResult, len(c.results))
	copy(results, c.results)
	return results
}

func (c *Coordinator) notify(level Level, message string) {
	c.notifier.Notify(Notification{Level: level, Message: message})
}
