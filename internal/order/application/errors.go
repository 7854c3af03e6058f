package application

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrForbidden    = errors.New("elevated role required")

	// ErrCompensationFailed means the rollback delete after a failed line
	// insert also failed: an orphan header may remain. Callers must surface
	// this distinctly, never fold it into an ordinary persistence failure.
	ErrCompensationFailed = errors.New("order compensation failed, orphan header may remain")
)

// PersistError reports which phase of the two-phase order write failed.
type PersistError struct {
	Phase string // "header" or "lines"
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Phase, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
