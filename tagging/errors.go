package tagging

import (
	"errors"
	"fmt"
)

// ErrNotFound means the referenced album or image no longer exists on the
// tagging service.
var ErrNotFound = errors.New("resource not found")

// TransientError wraps a network failure or an unclassified upstream error.
// The UI surfaces these as a dismissible retry toast, never silently.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// InsufficientCreditsError is the distinguished upload failure raised when
// the account cannot cover the batch. It is routed to a dedicated prompt
// rather than the generic error path.
type InsufficientCreditsError struct {
	RemainingCredits int `json:"remaining_credits"`
	RequestedImages  int `json:"requested_images"`
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: %d remaining, %d requested", e.RemainingCredits, e.RequestedImages)
}

// ValidationError is a locally rejected input; no request is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
