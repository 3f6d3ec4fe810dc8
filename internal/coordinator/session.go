package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

// startSession arms a manual analysis session: one progress ticker, one
// timeout watchdog, and the suggest request itself. Valid only from Idle.
func (c *Coordinator) startSession(ctx context.Context, projectID string, batch []int) error {
	c.mu.Lock()
	if c.sessionStatus != SessionIdle {
		c.mu.Unlock()
		return common.ErrAnalysisActive
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	c.sessionGen++
	gen := c.sessionGen
	c.sessionCancel = cancel
	c.sessionStatus = SessionRunning
	c.stepIndex = 0
	c.isAnalyzing = true
	c.watchdogArmed = true
	c.mu.Unlock()

	slog.Info("Starting analysis session",
		"project_id", projectID,
		"row_count", len(batch),
		"timeout", c.cfg.SessionTimeout)

	go c.runTicker(sessionCtx, gen)
	go c.runWatchdog(sessionCtx, gen)
	go c.dispatchSuggest(sessionCtx, gen, projectID, batch)

	return nil
}

// runTicker advances the simulated progress step every tick up to the
// configured ceiling, then holds. The ticker never completes the session
// by itself.
func (c *Coordinator) runTicker(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.cfg.StepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if gen != c.sessionGen || c.sessionStatus != SessionRunning {
				c.mu.Unlock()
				return
			}
			if c.stepIndex < c.cfg.StepCeiling {
				c.stepIndex++
			}
			c.mu.Unlock()
		}
	}
}

// runWatchdog forces the timeout path if the session does not resolve
// within the configured wall-clock bound.
func (c *Coordinator) runWatchdog(ctx context.Context, gen uint64) {
	timer := time.NewTimer(c.cfg.SessionTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		c.timeoutSession(gen)
	}
}

// dispatchSuggest performs the suggest request and hands the outcome to
// resolveSession. The request context is cancelled by cleanup, so a timed
// out or cancelled session aborts its request at the transport layer.
func (c *Coordinator) dispatchSuggest(ctx context.Context, gen uint64, projectID string, batch []int) {
	candidates, err := c.backend.Suggest(ctx, projectID, batch, c.cfg.MaxSuggestions)
	c.resolveSession(gen, candidates, err)
}

// resolveSession applies the suggest outcome. Only a Running session of
// the same generation may resolve; a response that lost to the watchdog or
// to cancellation is dropped, which keeps cleanup from running twice.
func (c *Coordinator) resolveSession(gen uint64, candidates []model.Candidate, err error) {
	c.mu.Lock()
	if gen != c.sessionGen || c.sessionStatus != SessionRunning {
		c.mu.Unlock()
		slog.Debug("Dropping late analysis response", "generation", gen)
		return
	}

	c.cleanupSessionLocked()

	if err != nil {
		c.sessionStatus = SessionIdle
		c.mu.Unlock()

		common.LogError(err, "Suggestion request failed", common.Fields{"generation": gen})
		c.notify(LevelError, "Analysis failed and no suggestions were produced. Submit the rows again to retry.")
		return
	}

	c.sessionStatus = SessionCompleted
	c.store.MergeIncremental(candidates)
	c.sessionStatus = SessionIdle
	c.mu.Unlock()

	// Silent success: no notification, so batch review continues
	// uninterrupted.
	slog.Info("Analysis session complete", "candidates", len(candidates))
}

// timeoutSession is the watchdog path. Same cleanup as a failure, distinct
// notification text.
func (c *Coordinator) timeoutSession(gen uint64) {
	c.mu.Lock()
	if gen != c.sessionGen || c.sessionStatus != SessionRunning {
		c.mu.Unlock()
		return
	}

	c.cleanupSessionLocked()
	c.sessionStatus = SessionTimedOut
	c.sessionStatus = SessionIdle
	c.mu.Unlock()

	slog.Warn("Analysis session timed out", "generation", gen, "timeout", c.cfg.SessionTimeout)
	c.notify(LevelError, fmt.Sprintf(
		"Analysis timed out after %s. The service may still be working; check the queue or resubmit.",
		c.cfg.SessionTimeout))
}

// CancelAnalysis abandons a running session: same cleanup as a timeout, no
// notification, and the entire suggestion cache is cleared. Cancellation
// means the user walked away from review, not that one submission failed.
// A no-op unless a session is running.
func (c *Coordinator) CancelAnalysis() {
	c.mu.Lock()
	if c.sessionStatus != SessionRunning {
		c.mu.Unlock()
		return
	}

	c.cleanupSessionLocked()
	c.sessionStatus = SessionCancelled
	c.store.Clear()
	c.sessionStatus = SessionIdle
	c.mu.Unlock()

	slog.Info("Analysis cancelled; suggestion cache cleared")
}

// cleanupSessionLocked disarms the ticker and watchdog and drops the busy
// flag. Callers must hold c.mu and set the follow-up status themselves.
func (c *Coordinator) cleanupSessionLocked() {
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
	c.watchdogArmed = false
	c.stepIndex = 0
	c.isAnalyzing = false
}
