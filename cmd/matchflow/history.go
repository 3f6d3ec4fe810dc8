package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matchflow/matchflow/internal/cli"
	"github.com/matchflow/matchflow/internal/journal"
	"github.com/matchflow/matchflow/internal/model"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent approve/reject decisions from the local journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := viper.GetString("journal.db")
			if dbPath == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to get home directory: %w", err)
				}
				dbPath = filepath.Join(home, ".local", "share", "matchflow", "journal.db")
			}

			j, err := journal.New(dbPath)
			if err != nil {
				return err
			}
			defer func() {
				_ = j.Close()
			}()

			if err := j.Migrate(cmd.Context()); err != nil {
				return err
			}

			decisions, err := j.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(decisions) == 0 {
				fmt.Println("No decisions recorded yet.")
				return nil
			}

			for _, d := range decisions {
				action := cli.SuccessStyle.Render(string(d.Action))
				if d.Action == model.ActionReject {
					action = cli.ErrorStyle.Render(string(d.Action))
				}
				fmt.Printf("%s  %-8s project=%s row=%d suggestion=%d confidence=%.0f%%\n",
					d.DecidedAt.Format("2006-01-02 15:04:05"),
					action,
					d.ProjectID,
					d.RowIndex,
					d.SuggestionID,
					d.Confidence*100)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of decisions to show")

	return cmd
}
