package repo

import (
	"errors"
	"fmt"

	"github.com/grovekit/grove/internal/content"
)

// StorageErrorCode categorizes storage errors.
type StorageErrorCode string

const (
	// ErrCodeNotFound indicates the path resolves to no node.
	ErrCodeNotFound StorageErrorCode = "NOT_FOUND"

	// ErrCodeConflict indicates a node already occupies the target path.
	// Conflicts are the transient class: concurrent sessions and
	// auto-materialized stubs both surface here, and callers retry them.
	ErrCodeConflict StorageErrorCode = "STORAGE_CONFLICT"

	// ErrCodeNotEmpty indicates RemoveItem was called on a node that
	// still has children.
	ErrCodeNotEmpty StorageErrorCode = "NOT_EMPTY"

	// ErrCodeStorage indicates an underlying storage failure.
	ErrCodeStorage StorageErrorCode = "STORAGE_ERROR"
)

// StorageError is the error type returned by repository sessions.
type StorageError struct {
	Code    StorageErrorCode
	Path    content.Path
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NOT_FOUND storage error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Code == ErrCodeNotFound
}

// IsConflict reports whether err is a STORAGE_CONFLICT storage error.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Code == ErrCodeConflict
}

// NewNotFoundError creates a NOT_FOUND error for a path.
func NewNotFoundError(path content.Path) *StorageError {
	return &StorageError{Code: ErrCodeNotFound, Path: path, Message: "no node at path"}
}

// NewConflictError creates a STORAGE_CONFLICT error for a path.
func NewConflictError(path content.Path) *StorageError {
	return &StorageError{Code: ErrCodeConflict, Path: path, Message: "node already exists at path"}
}

// NewNotEmptyError creates a NOT_EMPTY error for a path.
func NewNotEmptyError(path content.Path) *StorageError {
	return &StorageError{Code: ErrCodeNotEmpty, Path: path, Message: "node still has children"}
}

// WrapStorageError wraps an underlying driver error.
func WrapStorageError(path content.Path, message string, err error) *StorageError {
	return &StorageError{Code: ErrCodeStorage, Path: path, Message: message, Err: err}
}

// expandPrivileges rewrites the "all" pseudo-privilege to the full named
// set, so that a denial of any single privilege denies "all".
func expandPrivileges(privileges []string) []string {
	out := make([]string, 0, len(privileges)+3)
	for _, p := range privileges {
		if p == PrivAll {
			out = append(out, PrivRead, PrivWrite, PrivRemoveChildren, PrivRemoveNode)
			continue
		}
		out = append(out, p)
	}
	return out
}
