package pipeline

import (
	"errors"
	"fmt"
)

// StageErrorCode categorizes stage failures in the ledger.
type StageErrorCode string

const (
	// ErrCodeStructuralInput indicates an unusable timeline document.
	// Fatal for the run, never retried.
	ErrCodeStructuralInput StageErrorCode = "STRUCTURAL_INPUT"

	// ErrCodeRenderFailed indicates the rendering collaborator failed
	// permanently or exhausted its retry budget.
	ErrCodeRenderFailed StageErrorCode = "RENDER_FAILED"

	// ErrCodeRenderTimeout indicates the render deadline elapsed.
	ErrCodeRenderTimeout StageErrorCode = "RENDER_TIMEOUT"

	// ErrCodeContractViolations indicates validation reported violations.
	ErrCodeContractViolations StageErrorCode = "CONTRACT_VIOLATIONS"

	// ErrCodeVersionConflict indicates this run lost the single-active
	// race to a concurrent finalizer.
	ErrCodeVersionConflict StageErrorCode = "VERSION_CONFLICT"

	// ErrCodeInternal covers everything else (store failures, bugs
	// surfaced by downstream checks).
	ErrCodeInternal StageErrorCode = "INTERNAL"
)

// StageError is a typed failure of one pipeline stage.
type StageError struct {
	Stage   Stage
	Code    StageErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError extracts a StageError from err.
func IsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func stageErr(stage Stage, code StageErrorCode, err error, format string, args ...any) *StageError {
	return &StageError{
		Stage:   stage,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
