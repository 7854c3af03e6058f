package domain

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusConflict means the order's status changed between read and
	// write; the caller lost the compare-and-set race and nothing was
	// written.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// ValidationError carries the user-facing reason a checkout request was
// rejected. It is always detected before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
