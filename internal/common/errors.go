// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Analysis errors.
	ErrNoRowsSelected   = errors.New("no rows selected")
	ErrAnalysisActive   = errors.New("analysis already running")
	ErrAnalysisTimeout  = errors.New("analysis timed out")
	ErrSubmissionFailed = errors.New("suggestion request failed")

	// Decision errors.
	ErrResolutionNotFound = errors.New("no match result found")
	ErrDecisionInFlight   = errors.New("decision already in flight for row")

	// Queue errors.
	ErrQueueControlFailed = errors.New("queue control request failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
