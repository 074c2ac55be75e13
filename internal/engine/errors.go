package engine

import (
	"errors"
	"fmt"

	"github.com/grovekit/grove/internal/content"
)

// ProcessErrorCode categorizes unrecoverable process errors.
type ProcessErrorCode string

const (
	// ErrCodeConfigInvalid indicates an invalid parameter combination,
	// detected at init before any step runs.
	ErrCodeConfigInvalid ProcessErrorCode = "CONFIG_INVALID"

	// ErrCodePreconditionFailed indicates a structural precondition was
	// violated at or before the first step.
	ErrCodePreconditionFailed ProcessErrorCode = "PRECONDITION_FAILED"

	// ErrCodeACLDenied indicates a required privilege is missing on a
	// node inside the affected subtree.
	ErrCodeACLDenied ProcessErrorCode = "ACL_DENIED"
)

// ProcessError is an unrecoverable error: it terminates the whole process
// immediately, unlike item failures which only surface in the report.
type ProcessError struct {
	Code    ProcessErrorCode
	Step    string
	Path    content.Path
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	switch {
	case e.Step != "" && e.Path != "":
		return fmt.Sprintf("%s: %s (step=%s, path=%s)", e.Code, e.Message, e.Step, e.Path)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	case e.Step != "":
		return fmt.Sprintf("%s: %s (step=%s)", e.Code, e.Message, e.Step)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a CONFIG_INVALID error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var pe *ProcessError
	return errors.As(err, &pe) && pe.Code == ErrCodeConfigInvalid
}

// IsPreconditionError reports whether err is an error that aborts the
// process before mutation: PRECONDITION_FAILED or ACL_DENIED.
func IsPreconditionError(err error) bool {
	var pe *ProcessError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == ErrCodePreconditionFailed || pe.Code == ErrCodeACLDenied
}

// NewConfigurationError creates a CONFIG_INVALID error.
func NewConfigurationError(format string, args ...any) *ProcessError {
	return &ProcessError{Code: ErrCodeConfigInvalid, Message: fmt.Sprintf(format, args...)}
}

// NewPreconditionError creates a PRECONDITION_FAILED error.
func NewPreconditionError(format string, args ...any) *ProcessError {
	return &ProcessError{Code: ErrCodePreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

// NewACLDeniedError creates an ACL_DENIED error for a path.
func NewACLDeniedError(path content.Path) *ProcessError {
	return &ProcessError{
		Code:    ErrCodeACLDenied,
		Path:    path,
		Message: "insufficient privileges to permit operation",
	}
}
