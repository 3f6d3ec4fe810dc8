package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/matchflow/matchflow/internal/coordinator"
)

// Notifier renders coordinator notifications as styled one-liners.
// Safe for concurrent use: the coordinator notifies from timer and
// request goroutines.
type Notifier struct {
	out io.Writer
	mu  sync.Mutex
}

// NewNotifier creates a notifier writing to out.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

// Notify implements coordinator.Notifier.
func (n *Notifier) Notify(notification coordinator.Notification) {
	var line string
	switch notification.Level {
	case coordinator.LevelError:
		line = ErrorStyle.Render("✗ " + notification.Message)
	case coordinator.LevelWarning:
		line = WarningStyle.Render("! " + notification.Message)
	default:
		line = SuccessStyle.Render("• " + notification.Message)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, line)
}
