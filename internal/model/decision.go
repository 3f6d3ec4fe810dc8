package model

import "time"

// MatchResult is a backend-owned record of a match outcome for one customer
// row. The coordinator never mutates these directly; it reads them to
// resolve reject targets by value.
type MatchResult struct {
	Status           string
	MatchedProduct   string
	ID               int
	CustomerRowIndex int
	Confidence       float64
}

// DecisionAction distinguishes the two ways a suggestion can be resolved.
type DecisionAction string

// Decision actions.
const (
	ActionApprove DecisionAction = "APPROVE"
	ActionReject  DecisionAction = "REJECT"
)

// Decision records the outcome of an approve/reject on a single candidate.
// Journaled locally for audit; the backend keeps its own authoritative copy.
type Decision struct {
	DecidedAt    time.Time
	Action       DecisionAction
	ProjectID    string
	RowIndex     int
	SuggestionID int
	Confidence   float64
}
