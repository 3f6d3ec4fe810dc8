package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matchflow/matchflow/internal/cli"
)

func suggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "List the service's current match suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			cli.RenderGroups(os.Stdout, coord.Suggestions())
			return nil
		},
	}
}
