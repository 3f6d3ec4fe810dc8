package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matchflow/matchflow/internal/cli"
	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/coordinator"
	"github.com/matchflow/matchflow/internal/model"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Approve or reject cached match suggestions",
	}

	cmd.AddCommand(reviewApproveCmd())
	cmd.AddCommand(reviewRejectCmd())

	return cmd
}

func reviewApproveCmd() *cobra.Command {
	var rank int

	cmd := &cobra.Command{
		Use:   "approve <row-index>",
		Short: "Approve a row's suggestion (the recommended one by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecision(cmd, args[0], rank, func(coord *coordinator.Coordinator, projectID string, candidate model.Candidate) error {
				if err := coord.Approve(cmd.Context(), projectID, candidate); err != nil {
					return err
				}
				fmt.Printf("Approved %s for row %d.\n", cli.CandidateName(candidate), candidate.RowIndex)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&rank, "rank", 0, "rank of the candidate to approve (0 = recommended)")

	return cmd
}

func reviewRejectCmd() *cobra.Command {
	var rank int

	cmd := &cobra.Command{
		Use:   "reject <row-index>",
		Short: "Reject a row's suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecision(cmd, args[0], rank, func(coord *coordinator.Coordinator, projectID string, candidate model.Candidate) error {
				if err := coord.Reject(cmd.Context(), projectID, candidate); err != nil {
					return err
				}
				fmt.Printf("Rejected the match for row %d.\n", candidate.RowIndex)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&rank, "rank", 0, "rank of the candidate to reject (0 = recommended)")

	return cmd
}

// runDecision loads the cached suggestions for the project, picks the
// requested candidate, and applies the decision.
func runDecision(cmd *cobra.Command, rowArg string, rank int, decide func(*coordinator.Coordinator, string, model.Candidate) error) error {
	row, err := strconv.Atoi(rowArg)
	if err != nil || row < 0 {
		return fmt.Errorf("invalid row index %q", rowArg)
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

	if err := coord.RefreshSuggestions(cmd.Context(), projectID); err != nil {
		return err
	}

	candidates := coord.Store().Candidates(row)
	if len(candidates) == 0 {
		return common.NewUserError(
			fmt.Sprintf("no suggestions exist for row %d; run analyze first", row),
			common.ErrResolutionNotFound)
	}

	for _, candidate := range candidates {
		if candidate.Rank == rank {
			return decide(coord, projectID, candidate)
		}
	}

	return common.NewUserError(
		fmt.Sprintf("row %d has no candidate at rank %d (it has %d candidates)", row, rank, len(candidates)),
		common.ErrResolutionNotFound)
}
