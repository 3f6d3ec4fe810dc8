package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matchflow/matchflow/internal/cli"
)

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <row-index> [row-index...]",
		Short: "Submit rows for AI matching analysis",
		Long: `Submit a batch of customer row indices to the matching service and wait
for its suggestions. Batches above the soft cap are allowed; you just get
a heads-up that they can take longer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rows, err := parseRowIndices(args)
	if err != nil {
		return err
	}

	projectID, err := requireProjectID()
	if err != nil {
		return err
	}

	coord, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if err := coord.StartAnalysis(ctx, projectID, rows); err != nil {
		return err
	}

	if resolved := cli.WatchAnalysis(ctx, coord); !resolved {
		// Interrupted mid-session: abandon it, which also clears the cache.
		coord.CancelAnalysis()
		return ctx.Err()
	}

	cli.RenderGroups(os.Stdout, coord.Suggestions())
	return nil
}

func parseRowIndices(args []string) ([]int, error) {
	rows := make([]int, 0, len(args))
	for _, arg := range args {
		row, err := strconv.Atoi(arg)
		if err != nil || row < 0 {
			return nil, fmt.Errorf("invalid row index %q", arg)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
