package model

// QueueSnapshot is a point-in-time view of the service-side matching
// backlog for a project.
type QueueSnapshot struct {
	Queued       int
	Processing   int
	Ready        int
	AutoApproved int
}

// IsProcessing reports whether the backlog still has outstanding work.
// Derived, never stored independently.
func (s QueueSnapshot) IsProcessing() bool {
	return s.Queued > 0 || s.Processing > 0
}

// Drained reports whether the backlog has fully emptied.
func (s QueueSnapshot) Drained() bool {
	return s.Queued == 0 && s.Processing == 0
}
