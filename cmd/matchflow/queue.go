package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matchflow/matchflow/internal/cli"
)

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Control and observe the background matching queue",
	}

	cmd.AddCommand(queueStartCmd())
	cmd.AddCommand(queueStatusCmd())
	cmd.AddCommand(queuePauseCmd())
	cmd.AddCommand(queueResumeCmd())
	cmd.AddCommand(queueWatchCmd())

	return cmd
}

func queueStartCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Queue all unmatched rows for background matching",
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

			queued, err := coord.StartAutoQueue(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			fmt.Printf("Queued %d rows for background matching.\n", queued)

			if quiet {
				coord.StopQueuePolling()
				return nil
			}

			err = cli.RunQueueWatch(coord, projectID)
			coord.StopQueuePolling()
			return err
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "queue the rows and exit without watching")

	return cmd
}

func queueStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a one-shot snapshot of the matching backlog",
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

			snapshot, err := coord.CheckAndResume(cmd.Context(), projectID)
			coord.StopQueuePolling()
			if err != nil {
				return err
			}

			fmt.Printf("Queued:        %d\n", snapshot.Queued)
			fmt.Printf("Processing:    %d\n", snapshot.Processing)
			fmt.Printf("Ready:         %d\n", snapshot.Ready)
			fmt.Printf("Auto-approved: %d\n", snapshot.AutoApproved)
			return nil
		},
	}
}

func queuePauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause server-side matching work",
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

			if err := coord.PauseQueue(cmd.Context(), projectID); err != nil {
				return err
			}

			fmt.Println("Queue paused.")
			return nil
		},
	}
}

func queueResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume server-side matching work",
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

			if err := coord.ResumeQueue(cmd.Context(), projectID); err != nil {
				return err
			}

			fmt.Println("Queue resumed.")
			return nil
		},
	}
}

func queueWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the matching backlog until it drains",
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

			snapshot, err := coord.CheckAndResume(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			if !snapshot.IsProcessing() {
				fmt.Fprintln(os.Stdout, "Backlog is already drained.")
				return nil
			}

			err = cli.RunQueueWatch(coord, projectID)
			coord.StopQueuePolling()
			return err
		},
	}
}
