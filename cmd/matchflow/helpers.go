package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/matchflow/matchflow/internal/api"
	"github.com/matchflow/matchflow/internal/cli"
	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/coordinator"
	"github.com/matchflow/matchflow/internal/journal"
	"github.com/matchflow/matchflow/internal/store"
)

// newCoordinator builds the coordinator from viper configuration. The
// returned cleanup closes the decision journal if one was attached.
func newCoordinator() (*coordinator.Coordinator, func(), error) {
	baseURL := viper.GetString("api.base_url")
	if baseURL == "" {
		return nil, nil, common.NewUserError(
			"matching service URL is required (--api-url or MATCHFLOW_API_BASE_URL)",
			common.ErrMissingConfig)
	}

	client, err := api.NewClient(baseURL, viper.GetDuration("api.timeout"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}

	cfg := coordinator.DefaultConfig()
	if v := viper.GetInt("analysis.soft_cap"); v > 0 {
		cfg.SoftCap = v
	}
	if v := viper.GetInt("analysis.max_suggestions"); v > 0 {
		cfg.MaxSuggestions = v
	}
	if v := viper.GetDuration("analysis.timeout"); v > 0 {
		cfg.SessionTimeout = v
	}
	if v := viper.GetDuration("queue.poll_interval"); v > 0 {
		cfg.PollInterval = v
	}

	coord := coordinator.NewWithConfig(client, store.New(), cli.NewNotifier(os.Stderr), cfg)

	cleanup := func() {}
	if j := openJournal(); j != nil {
		coord.SetDecisionSink(j)
		cleanup = func() {
			if err := j.Close(); err != nil {
				slog.Warn("Failed to close decision journal", "error", err)
			}
		}
	}

	return coord, cleanup, nil
}

// openJournal opens the local decision journal. The journal is optional:
// any failure is logged and decisions simply go unrecorded.
func openJournal() *journal.Journal {
	dbPath := viper.GetString("journal.db")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("Cannot locate home directory; decision journal disabled", "error", err)
			return nil
		}
		dbPath = filepath.Join(home, ".local", "share", "matchflow", "journal.db")
	}

	j, err := journal.New(dbPath)
	if err != nil {
		slog.Warn("Failed to open decision journal", "path", dbPath, "error", err)
		return nil
	}

	if err := j.Migrate(context.Background()); err != nil {
		slog.Warn("Failed to migrate decision journal", "path", dbPath, "error", err)
		_ = j.Close()
		return nil
	}

	return j
}

// requireProjectID reads the configured project id.
func requireProjectID() (string, error) {
	projectID := viper.GetString("project.id")
	if projectID == "" {
		return "", common.NewUserError(
			"project id is required (--project or MATCHFLOW_PROJECT_ID)",
			common.ErrMissingConfig)
	}
	return projectID, nil
}
