package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

// StartQueuePolling arms the repeating backlog observer. Idempotent: any
// prior poller is stopped before the new one starts, so at most one poll
// timer is ever active.
func (c *Coordinator) StartQueuePolling(projectID string) {
	c.mu.Lock()
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	c.pollGen++
	gen := c.pollGen
	c.pollCancel = cancel
	c.mu.Unlock()

	slog.Info("Starting queue poller",
		"project_id", projectID,
		"interval", c.cfg.PollInterval)

	go c.pollLoop(pollCtx, gen, projectID)
}

// StopQueuePolling disarms the poller and drops the queue-processing flag.
// The shared busy flag is cleared only when no analysis watchdog is armed,
// so a manual submission in flight is not cut short.
func (c *Coordinator) StopQueuePolling() {
	c.mu.Lock()
	c.stopPollingLocked(c.pollGen)
	c.mu.Unlock()

	slog.Info("Queue poller stopped")
}

// PauseQueue pauses server-side processing and flips the local pause flag.
// The poll timer keeps running: pause affects the service's work, not
// client observation.
func (c *Coordinator) PauseQueue(ctx context.Context, projectID string) error {
	if err := c.backend.PauseQueue(ctx, projectID); err != nil {
		c.notify(LevelError, "Could not pause the matching queue. It is still running.")
		return fmt.Errorf("%w: pause: %v", common.ErrQueueControlFailed, err)
	}

	c.mu.Lock()
	c.isQueuePaused = true
	c.mu.Unlock()

	slog.Info("Queue paused", "project_id", projectID)
	return nil
}

// ResumeQueue resumes server-side processing and clears the local pause
// flag.
func (c *Coordinator) ResumeQueue(ctx context.Context, projectID string) error {
	if err := c.backend.ResumeQueue(ctx, projectID); err != nil {
		c.notify(LevelError, "Could not resume the matching queue. It is still paused.")
		return fmt.Errorf("%w: resume: %v", common.ErrQueueControlFailed, err)
	}

	c.mu.Lock()
	c.isQueuePaused = false
	c.mu.Unlock()

	slog.Info("Queue resumed", "project_id", projectID)
	return nil
}

// CheckAndResume fetches one snapshot and, if the backlog shows activity,
// marks the coordinator busy and starts the poller. Recovers observation
// after a restart while server-side processing continued unattended.
func (c *Coordinator) CheckAndResume(ctx context.Context, projectID string) (model.QueueSnapshot, error) {
	var snapshot model.QueueSnapshot
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		snapshot, fetchErr = c.backend.QueueStatus(ctx, projectID)
		if fetchErr != nil {
			return &common.RetryableError{Err: fetchErr, Retryable: true}
		}
		return nil
	}, common.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	})
	if err != nil {
		return model.QueueSnapshot{}, fmt.Errorf("failed to check queue status: %w", err)
	}

	c.mu.Lock()
	snap := snapshot
	c.queueStatus = &snap
	active := snapshot.IsProcessing()
	c.isQueueProcessing = active
	if active {
		c.isAnalyzing = true
	}
	c.mu.Unlock()

	if active {
		slog.Info("Backlog active after reconnect; resuming observation",
			"queued", snapshot.Queued,
			"processing", snapshot.Processing)
		c.StartQueuePolling(projectID)
	}

	return snapshot, nil
}

// StartAutoQueue asks the service to queue all unmatched rows, then starts
// observing the backlog. Returns how many rows the service queued.
func (c *Coordinator) StartAutoQueue(ctx context.Context, projectID string) (int, error) {
	queued, err := c.backend.AutoQueue(ctx, projectID)
	if err != nil {
		c.notify(LevelError, "Could not queue rows for background matching.")
		return 0, fmt.Errorf("%w: auto-queue: %v", common.ErrQueueControlFailed, err)
	}

	slog.Info("Queued rows for background matching",
		"project_id", projectID,
		"queued_count", queued)

	if _, err := c.CheckAndResume(ctx, projectID); err != nil {
		slog.Warn("Could not confirm queue activity after auto-queue", "error", err)
	}

	return queued, nil
}

func (c *Coordinator) pollLoop(ctx context.Context, gen uint64, projectID string) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := c.pollTick(ctx, gen, projectID); done {
				return
			}
		}
	}
}

// pollTick observes one snapshot, refreshes the merge store from the
// service's full candidate list, and self-stops when the backlog drains.
// Returns true when the loop should exit.
func (c *Coordinator) pollTick(ctx context.Context, gen uint64, projectID string) bool {
	snapshot, err := c.backend.QueueStatus(ctx, projectID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		slog.Warn("Queue status fetch failed; will retry next tick", "error", err)
		return false
	}

	candidates, err := c.backend.Suggestions(ctx, projectID)
	refreshed := err == nil
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		slog.Warn("Suggestion refresh failed; keeping cached candidates", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.pollGen {
		// A newer poller took over while this tick was in flight.
		return true
	}

	if refreshed {
		// Bulk ground-truth refresh: wholesale replace, not a merge.
		c.store.ReplaceAll(candidates)
	}

	snap := snapshot
	c.queueStatus = &snap
	c.isQueueProcessing = snapshot.IsProcessing()
	if c.isQueueProcessing {
		c.isAnalyzing = true
	}

	if snapshot.Drained() {
		slog.Info("Backlog drained; queue poller stopping",
			"ready", snapshot.Ready,
			"auto_approved", snapshot.AutoApproved)
		c.stopPollingLocked(gen)
		return true
	}

	return false
}

// stopPollingLocked disarms the poller if gen still identifies the active
// one. Callers must hold c.mu.
func (c *Coordinator) stopPollingLocked(gen uint64) {
	if gen != c.pollGen {
		return
	}
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.isQueueProcessing = false
	if !c.watchdogArmed {
		c.isAnalyzing = false
	}
}
