package coordinator

import (
	"context"
	"sync"

	"github.com/matchflow/matchflow/internal/model"
)

// fakeBackend is a scripted Backend for coordinator tests.
type fakeBackend struct {
	mu sync.Mutex

	// suggestFn overrides the suggest behavior when set.
	suggestFn func(ctx context.Context, rowIndices []int) ([]model.Candidate, error)

	// snapshots are returned by QueueStatus in order; the last one repeats.
	snapshots   []model.QueueSnapshot
	snapshotIdx int
	snapshotErr error

	suggestions    []model.Candidate
	suggestionsErr error

	results    []model.MatchResult
	resultsErr error

	approveErr     error
	approveHook    func() error
	rejectErr      error
	pauseErr       error
	resumeErr      error
	autoQueueCount int
	autoQueueErr   error

	calls           map[string]int
	lastSuggestRows []int
	lastApproveRow  int
	lastApproveID   int
	lastRejectIDs   []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Suggest(ctx context.Context, _ string, rowIndices []int, _ int) ([]model.Candidate, error) {
	f.record("suggest")
	f.mu.Lock()
	f.lastSuggestRows = append([]int(nil), rowIndices...)
	fn := f.suggestFn
	suggestions := f.suggestions
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, rowIndices)
	}
	return suggestions, nil
}

func (f *fakeBackend) QueueStatus(context.Context, string) (model.QueueSnapshot, error) {
	f.record("queue_status")
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.snapshotErr != nil {
		return model.QueueSnapshot{}, f.snapshotErr
	}
	if len(f.snapshots) == 0 {
		return model.QueueSnapshot{}, nil
	}

	snapshot := f.snapshots[f.snapshotIdx]
	if f.snapshotIdx < len(f.snapshots)-1 {
		f.snapshotIdx++
	}
	return snapshot, nil
}

func (f *fakeBackend) Suggestions(context.Context, string) ([]model.Candidate, error) {
	f.record("suggestions")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestions, f.suggestionsErr
}

func (f *fakeBackend) AutoQueue(context.Context, string) (int, error) {
	f.record("auto_queue")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoQueueCount, f.autoQueueErr
}

func (f *fakeBackend) PauseQueue(context.Context, string) error {
	f.record("pause")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauseErr
}

func (f *fakeBackend) ResumeQueue(context.Context, string) error {
	f.record("resume")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumeErr
}

func (f *fakeBackend) Approve(_ context.Context, _ string, rowIndex, suggestionID int) error {
	f.record("approve")
	f.mu.Lock()
	f.lastApproveRow = rowIndex
	f.lastApproveID = suggestionID
	hook := f.approveHook
	err := f.approveErr
	f.mu.Unlock()

	if hook != nil {
		return hook()
	}
	return err
}

func (f *fakeBackend) Results(context.Context, string) ([]model.MatchResult, error) {
	f.record("results")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results, f.resultsErr
}

func (f *fakeBackend) Reject(_ context.Context, _ string, ids []int) error {
	f.record("reject")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRejectIDs = append([]int(nil), ids...)
	return f.rejectErr
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (n *recordingNotifier) Notify(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, notification)
}

func (n *recordingNotifier) count(level Level) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	total := 0
	for _, note := range n.notes {
		if note.Level == level {
			total++
		}
	}
	return total
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.notes...)
}

// recordingSink captures journaled decisions.
type recordingSink struct {
	mu        sync.Mutex
	decisions []model.Decision
	err       error
}

func (s *recordingSink) RecordDecision(_ context.Context, decision model.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.decisions = append(s.decisions, decision)
	return nil
}

func (s *recordingSink) recorded() []model.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Decision(nil), s.decisions...)
}

func candidateFor(row, rank int) model.Candidate {
	return model.Candidate{
		SuggestionID: row*100 + rank,
		RowIndex:     row,
		Rank:         rank,
		Confidence:   0.9 - float64(rank)*0.2,
		Fields:       map[string]string{"product_name": "Widget"},
	}
}
