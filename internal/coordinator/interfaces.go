package coordinator

import (
	"context"
	"log/slog"

	"github.com/matchflow/matchflow/internal/model"
)

// Backend is the consumed surface of the matching service. *api.Client
// satisfies it; tests substitute scripted fakes.
type Backend interface {
	Suggest(ctx context.Context, projectID string, rowIndices []int, maxSuggestions int) ([]model.Candidate, error)
	QueueStatus(ctx context.Context, projectID string) (model.QueueSnapshot, error)
	Suggestions(ctx context.Context, projectID string) ([]model.Candidate, error)
	AutoQueue(ctx context.Context, projectID string) (int, error)
	PauseQueue(ctx context.Context, projectID string) error
	ResumeQueue(ctx context.Context, projectID string) error
	Approve(ctx context.Context, projectID string, rowIndex, suggestionID int) error
	Results(ctx context.Context, projectID string) ([]model.MatchResult, error)
	Reject(ctx context.Context, projectID string, ids []int) error
}

// Level classifies a notification for presentation.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Notification is a transient, user-visible message. None of them are
// fatal; the coordinator always returns to an observable idle state after
// emitting one.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications for display. Implementations must be
// safe for concurrent use; the coordinator notifies from timer and request
// goroutines.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier routes notifications to slog. Used when no presentation
// layer is attached.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(n Notification) {
	switch n.Level {
	case LevelError:
		slog.Error(n.Message)
	case LevelWarning:
		slog.Warn(n.Message)
	default:
		slog.Info(n.Message)
	}
}

// DecisionSink records approve/reject outcomes. Recording is best-effort:
// a sink failure is logged and never fails the decision.
type DecisionSink interface {
	RecordDecision(ctx context.Context, decision model.Decision) error
}
