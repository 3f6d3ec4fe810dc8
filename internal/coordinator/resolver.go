package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

// Approve accepts a candidate. The row leaves the merge store only after
// the backend mutation succeeds; on failure the row stays put and the user
// may retry.
func (c *Coordinator) Approve(ctx context.Context, projectID string, candidate model.Candidate) error {
	release, err := c.acquireRow(candidate.RowIndex)
	if err != nil {
		return err
	}
	defer release()

	if err := c.backend.Approve(ctx, projectID, candidate.RowIndex, candidate.SuggestionID); err != nil {
		c.notify(LevelError, fmt.Sprintf("Could not approve the match for row %d. Try again.", candidate.RowIndex))
		return fmt.Errorf("approve failed for row %d: %w", candidate.RowIndex, err)
	}

	c.store.RemoveRow(candidate.RowIndex)
	c.recordDecision(ctx, decisionFor(model.ActionApprove, projectID, candidate))
	c.refreshResults(ctx, projectID)

	slog.Info("Approved match",
		"row_index", candidate.RowIndex,
		"suggestion_id", candidate.SuggestionID,
		"confidence", candidate.Confidence)

	return nil
}

// Reject declines a candidate. The candidate carries no backend result id,
// so the target is resolved by value against the current match-result
// list; if no result matches the row, the store is left unchanged.
func (c *Coordinator) Reject(ctx context.Context, projectID string, candidate model.Candidate) error {
	release, err := c.acquireRow(candidate.RowIndex)
	if err != nil {
		return err
	}
	defer release()

	results, err := c.fetchResults(ctx, projectID)
	if err != nil {
		c.notify(LevelError, fmt.Sprintf("Could not look up the match result for row %d.", candidate.RowIndex))
		return fmt.Errorf("reject lookup failed for row %d: %w", candidate.RowIndex, err)
	}

	var target *model.MatchResult
	for i := range results {
		if results[i].CustomerRowIndex == candidate.RowIndex {
			target = &results[i]
			break
		}
	}
	if target == nil {
		c.notify(LevelError, fmt.Sprintf("No match result exists for row %d; nothing was rejected.", candidate.RowIndex))
		return fmt.Errorf("%w: row %d", common.ErrResolutionNotFound, candidate.RowIndex)
	}

	if err := c.backend.Reject(ctx, projectID, []int{target.ID}); err != nil {
		c.notify(LevelError, fmt.Sprintf("Could not reject the match for row %d. Try again.", candidate.RowIndex))
		return fmt.Errorf("reject failed for row %d: %w", candidate.RowIndex, err)
	}

	c.store.RemoveRow(candidate.RowIndex)
	c.recordDecision(ctx, decisionFor(model.ActionReject, projectID, candidate))
	c.refreshResults(ctx, projectID)

	slog.Info("Rejected match",
		"row_index", candidate.RowIndex,
		"result_id", target.ID)

	return nil
}

// acquireRow marks a row's decision as in flight, rejecting duplicates
// under rapid repeated input. The returned release must be called once the
// decision settles.
func (c *Coordinator) acquireRow(rowIndex int) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[rowIndex]; busy {
		return nil, fmt.Errorf("%w: row %d", common.ErrDecisionInFlight, rowIndex)
	}
	c.inflight[rowIndex] = struct{}{}

	return func() {
		c.mu.Lock()
		delete(c.inflight, rowIndex)
		c.mu.Unlock()
	}, nil
}

// fetchResults reads the backend match-result list with a short retry;
// the lookup is read-only so retrying is safe.
func (c *Coordinator) fetchResults(ctx context.Context, projectID string) ([]model.MatchResult, error) {
	var results []model.MatchResult
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		results, fetchErr = c.backend.Results(ctx, projectID)
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
		return nil, err
	}

	return results, nil
}

// refreshResults re-reads backend-owned match results after a decision so
// the presentation layer sees the new state. Best-effort.
func (c *Coordinator) refreshResults(ctx context.Context, projectID string) {
	results, err := c.backend.Results(ctx, projectID)
	if err != nil {
		slog.Warn("Match result refresh failed", "error", err)
		return
	}

	c.mu.Lock()
	c.results = results
	c.mu.Unlock()
}

// recordDecision journals a decision outcome. A journal failure is logged,
// never surfaced: the backend mutation already succeeded.
func (c *Coordinator) recordDecision(ctx context.Context, decision model.Decision) {
	c.mu.Lock()
	sink := c.journal
	c.mu.Unlock()

	if sink == nil {
		return
	}

	if err := sink.RecordDecision(ctx, decision); err != nil {
		slog.Warn("Failed to journal decision",
			"row_index", decision.RowIndex,
			"action", decision.Action,
			"error", err)
	}
}

func decisionFor(action model.DecisionAction, projectID string, candidate model.Candidate) model.Decision {
	return model.Decision{
		DecidedAt:    time.Now(),
		Action:       action,
		ProjectID:    projectID,
		RowIndex:     candidate.RowIndex,
		SuggestionID: candidate.SuggestionID,
		Confidence:   candidate.Confidence,
	}
}
