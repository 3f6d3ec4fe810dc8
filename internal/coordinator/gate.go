package coordinator

import (
	"context"
	"fmt"
	"log/slog"
)

// StartAnalysis is the manual submission entry point. It validates the
// selected rows and forwards the whole batch to the analysis session.
//
// An empty selection is a no-op. A batch above the soft cap emits one
// advisory notification and still proceeds with every row; the cap warns,
// it never truncates.
func (c *Coordinator) StartAnalysis(ctx context.Context, projectID string, selected []int) error {
	batch := dedupeRows(selected)
	if len(batch) == 0 {
		slog.Debug("Ignoring empty analysis submission", "project_id", projectID)
		return nil
	}

	if len(batch) > c.cfg.SoftCap {
		c.notify(LevelWarning, fmt.Sprintf(
			"Analyzing %d rows in one batch; batches above %d can take noticeably longer.",
			len(batch), c.cfg.SoftCap))
	}

	return c.startSession(ctx, projectID, batch)
}

// dedupeRows keeps the first occurrence of each row index, preserving
// submission order.
func dedupeRows(selected []int) []int {
	seen := make(map[int]struct{}, len(selected))
	batch := make([]int, 0, len(selected))

	for _, row := range selected {
		if _, ok := seen[row]; ok {
			continue
		}
		seen[row] = struct{}{}
		batch = append(batch, row)
	}

	return batch
}
