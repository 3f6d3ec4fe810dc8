package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/matchflow/matchflow/internal/coordinator"
)

type watchTickMsg time.Time

type queueControlMsg struct {
	err error
}

// queueWatchModel is a live view over the coordinator's queue observation.
// The poller keeps the snapshot fresh; this model only reads it.
type queueWatchModel struct {
	coord     *coordinator.Coordinator
	projectID string
	spinner   spinner.Model
	err       error
	quitting  bool
}

func newQueueWatchModel(coord *coordinator.Coordinator, projectID string) queueWatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = TitleStyle

	return queueWatchModel{
		coord:     coord,
		projectID: projectID,
		spinner:   s,
	}
}

func watchTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m queueWatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, watchTick())
}

func (m queueWatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "p":
			return m, m.queueControl(m.coord.PauseQueue)
		case "r":
			return m, m.queueControl(m.coord.ResumeQueue)
		}

	case watchTickMsg:
		if snapshot := m.coord.QueueStatus(); snapshot != nil && snapshot.Drained() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, watchTick()

	case queueControlMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m queueWatchModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Matching queue") + "\n\n")

	snapshot := m.coord.QueueStatus()
	if snapshot == nil {
		b.WriteString(SubtleStyle.Render("Waiting for first snapshot...") + "\n")
	} else {
		b.WriteString(fmt.Sprintf("  Queued:        %s\n", BoldStyle.Render(fmt.Sprintf("%d", snapshot.Queued))))
		b.WriteString(fmt.Sprintf("  Processing:    %s\n", BoldStyle.Render(fmt.Sprintf("%d", snapshot.Processing))))
		b.WriteString(fmt.Sprintf("  Ready:         %s\n", SuccessStyle.Render(fmt.Sprintf("%d", snapshot.Ready))))
		b.WriteString(fmt.Sprintf("  Auto-approved: %s\n", SuccessStyle.Render(fmt.Sprintf("%d", snapshot.AutoApproved))))
	}

	b.WriteString("\n")

	switch {
	case m.coord.IsQueuePaused():
		b.WriteString(WarningStyle.Render("Paused on the server; observation continues.") + "\n")
	case m.coord.IsQueueProcessing():
		b.WriteString(m.spinner.View() + " Processing...\n")
	default:
		b.WriteString(SubtleStyle.Render("Backlog drained.") + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + ErrorStyle.Render("✗ "+m.err.Error()) + "\n")
	}

	if !m.quitting {
		b.WriteString("\n" + SubtleStyle.Render("p pause · r resume · q quit") + "\n")
	}

	return b.String()
}

func (m queueWatchModel) queueControl(control func(context.Context, string) error) tea.Cmd {
	projectID := m.projectID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return queueControlMsg{err: control(ctx, projectID)}
	}
}

// RunQueueWatch renders the live queue view until the backlog drains or
// the user quits. The caller is responsible for having started the
// coordinator's poller.
func RunQueueWatch(coord *coordinator.Coordinator, projectID string) error {
	program := tea.NewProgram(newQueueWatchModel(coord, projectID))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("queue watch failed: %w", err)
	}
	return nil
}
