package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

func TestPollerStopsWhenBacklogDrains(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{
		{Queued: 3, Processing: 1},
		{Queued: 1, Processing: 1},
		{Queued: 0, Processing: 0, Ready: 4},
	}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	coord.StartQueuePolling(testProject)

	require.Eventually(t, func() bool {
		snapshot := coord.QueueStatus()
		return snapshot != nil && snapshot.Drained() && !coord.IsQueueProcessing()
	}, 2*time.Second, 5*time.Millisecond, "poller did not stop after the backlog drained")

	snapshot := coord.QueueStatus()
	require.NotNil(t, snapshot)
	assert.Equal(t, 4, snapshot.Ready)

	// The poller disarmed itself; no further observation happens.
	calls := backend.callCount("queue_status")
	time.Sleep(5 * coord.Config().PollInterval)
	assert.Equal(t, calls, backend.callCount("queue_status"))
}

func TestPollerStartIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Queued: 5}}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	coord.StartQueuePolling(testProject)
	coord.StartQueuePolling(testProject)
	coord.StartQueuePolling(testProject)

	// With one active timer, call volume tracks the tick count; stacked
	// timers would triple it.
	interval := coord.Config().PollInterval
	time.Sleep(10 * interval)
	coord.StopQueuePolling()

	calls := backend.callCount("queue_status")
	assert.LessOrEqual(t, calls, 13, "stacked pollers detected: %d snapshot fetches", calls)
	assert.Greater(t, calls, 0)
}

func TestPollerReplacesStoreWholesale(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Queued: 1}}
	backend.suggestions = []model.Candidate{candidateFor(2, 0)}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	// A stale row the service no longer reports.
	coord.Store().MergeIncremental([]model.Candidate{candidateFor(1, 0)})

	coord.StartQueuePolling(testProject)

	require.Eventually(t, func() bool {
		return coord.Store().HasRow(2) && !coord.Store().HasRow(1)
	}, 2*time.Second, 5*time.Millisecond, "bulk refresh must replace, not merge")

	coord.StopQueuePolling()
}

func TestPollerKeepsCacheWhenRefreshFails(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Queued: 1}}
	backend.suggestionsErr = errors.New("listing unavailable")
	coord, _ := newTestCoordinator(t, backend, testConfig())

	coord.Store().MergeIncremental([]model.Candidate{candidateFor(1, 0)})

	coord.StartQueuePolling(testProject)

	require.Eventually(t, func() bool {
		return backend.callCount("suggestions") >= 2
	}, 2*time.Second, 5*time.Millisecond)
	coord.StopQueuePolling()

	assert.True(t, coord.Store().HasRow(1), "cached candidates survive a failed refresh")
}

func TestStopPollingPreservesBusyFlagDuringManualAnalysis(t *testing.T) {
	release := make(chan struct{})
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Queued: 2}}
	backend.suggestFn = func(ctx context.Context, _ []int) ([]model.Candidate, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return nil, nil
		}
	}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	require.NoError(t, coord.StartAnalysis(context.Background(), testProject, []int{1}))
	coord.StartQueuePolling(testProject)

	require.Eventually(t, func() bool {
		return coord.IsQueueProcessing()
	}, 2*time.Second, 5*time.Millisecond)

	coord.StopQueuePolling()

	assert.False(t, coord.IsQueueProcessing())
	assert.True(t, coord.IsAnalyzing(),
		"stopping the poller must not cut a manual submission short")

	close(release)
	waitForIdle(t, coord)
}

func TestStopPollingClearsBusyFlagWhenNoSessionRuns(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Queued: 2}}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	coord.StartQueuePolling(testProject)
	require.Eventually(t, func() bool {
		return coord.IsAnalyzing()
	}, 2*time.Second, 5*time.Millisecond)

	coord.StopQueuePolling()

	assert.False(t, coord.IsQueueProcessing())
	assert.False(t, coord.IsAnalyzing())
}

func TestPollerSelfStopIndependentOfManualSession(t *testing.T) {
	release := make(chan struct{})
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{
		{Queued: 3},
		{Queued: 0, Processing: 0},
	}
	backend.suggestFn = func(ctx context.Context, _ []int) ([]model.Candidate, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return nil, nil
		}
	}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	require.NoError(t, coord.StartAnalysis(context.Background(), testProject, []int{1}))
	coord.StartQueuePolling(testProject)

	require.Eventually(t, func() bool {
		return !coord.IsQueueProcessing() && coord.QueueStatus() != nil && coord.QueueStatus().Drained()
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, coord.IsAnalyzing(), "manual session still running")
	assert.Equal(t, SessionRunning, coord.SessionStatus())

	close(release)
	waitForIdle(t, coord)
}

func TestPauseAndResumeToggleFlagWithoutStoppingPoller(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Queued: 2}}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	coord.StartQueuePolling(testProject)
	require.Eventually(t, func() bool {
		return backend.callCount("queue_status") >= 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, coord.PauseQueue(context.Background(), testProject))
	assert.True(t, coord.IsQueuePaused())

	// Pause affects server-side work only; observation continues.
	before := backend.callCount("queue_status")
	require.Eventually(t, func() bool {
		return backend.callCount("queue_status") > before
	}, 2*time.Second, 5*time.Millisecond, "poll timer must keep running while paused")

	require.NoError(t, coord.ResumeQueue(context.Background(), testProject))
	assert.False(t, coord.IsQueuePaused())

	coord.StopQueuePolling()
}

func TestPauseFailureLeavesFlagUnchanged(t *testing.T) {
	backend := newFakeBackend()
	backend.pauseErr = errors.New("control endpoint down")
	coord, notifier := newTestCoordinator(t, backend, testConfig())

	err := coord.PauseQueue(context.Background(), testProject)
	require.ErrorIs(t, err, common.ErrQueueControlFailed)

	assert.False(t, coord.IsQueuePaused())
	assert.Equal(t, 1, notifier.count(LevelError))
}

func TestCheckAndResumeStartsPollerWhenActive(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Queued: 4, Processing: 1}}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	snapshot, err := coord.CheckAndResume(context.Background(), testProject)
	require.NoError(t, err)
	assert.True(t, snapshot.IsProcessing())
	assert.True(t, coord.IsAnalyzing())
	assert.True(t, coord.IsQueueProcessing())

	// The poller was armed and keeps observing.
	initial := backend.callCount("queue_status")
	require.Eventually(t, func() bool {
		return backend.callCount("queue_status") > initial
	}, 2*time.Second, 5*time.Millisecond)

	coord.StopQueuePolling()
}

func TestCheckAndResumeSkipsPollerWhenDrained(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots = []model.QueueSnapshot{{Ready: 7}}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	snapshot, err := coord.CheckAndResume(context.Background(), testProject)
	require.NoError(t, err)
	assert.False(t, snapshot.IsProcessing())
	assert.False(t, coord.IsAnalyzing())

	time.Sleep(4 * coord.Config().PollInterval)
	assert.Equal(t, 1, backend.callCount("queue_status"), "no poller should have started")
}

func TestStartAutoQueueReportsCountAndObserves(t *testing.T) {
	backend := newFakeBackend()
	backend.autoQueueCount = 12
	backend.snapshots = []model.QueueSnapshot{{Queued: 12}}
	coord, _ := newTestCoordinator(t, backend, testConfig())

	queued, err := coord.StartAutoQueue(context.Background(), testProject)
	require.NoError(t, err)
	assert.Equal(t, 12, queued)
	assert.True(t, coord.IsQueueProcessing())

	coord.StopQueuePolling()
}

func TestStartAutoQueueFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.autoQueueErr = errors.New("boom")
	coord, notifier := newTestCoordinator(t, backend, testConfig())

	_, err := coord.StartAutoQueue(context.Background(), testProject)
	require.ErrorIs(t, err, common.ErrQueueControlFailed)
	assert.Equal(t, 1, notifier.count(LevelError))
	assert.Equal(t, 0, backend.callCount("queue_status"))
}
