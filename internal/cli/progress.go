package cli

import (
	"context"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/matchflow/matchflow/internal/coordinator"
)

// thinkingSteps names the simulated progress phases shown while the
// matching service works. The last label holds until the session resolves.
var thinkingSteps = []string{
	"Reading selected rows",
	"Searching the product database",
	"Scoring candidate matches",
	"Ranking alternatives",
	"Preparing rationales",
}

// WatchAnalysis renders the session's simulated progress until the
// coordinator settles back to idle or ctx is cancelled. Returns true when
// the session ran to resolution while being watched.
func WatchAnalysis(ctx context.Context, coord *coordinator.Coordinator) bool {
	ceiling := coord.Config().StepCeiling

	bar := progressbar.NewOptions(ceiling,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(stepLabel(0)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for coord.IsAnalyzing() {
		select {
		case <-ctx.Done():
			_ = bar.Clear()
			return false
		case <-ticker.C:
			step := coord.ThinkingStep()
			_ = bar.Set(step)
			bar.Describe(stepLabel(step))
		}
	}

	_ = bar.Finish()
	return true
}

func stepLabel(step int) string {
	if step >= len(thinkingSteps) {
		step = len(thinkingSteps) - 1
	}
	if step < 0 {
		step = 0
	}
	return thinkingSteps[step]
}
