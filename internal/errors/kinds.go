package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrStorage marks a failure to read or persist state.
	ErrStorage = stderrors.New("storage failure")
	// ErrNotFound marks a reference to a habit that does not exist or is archived.
	ErrNotFound = stderrors.New("not found")
	// ErrPermissionDenied marks a refused notification permission.
	ErrPermissionDenied = stderrors.New("notification permission denied")
	// ErrValidation marks rejected input.
	ErrValidation = stderrors.New("validation failed")
)

// OpError describes a failed operation on a resource. It matches its Kind
// through errors.Is and unwraps to the underlying cause.
type OpError struct {
	Op       string
	Resource string
	ID       string
	Kind     error
	Err      error
	// Hint is an optional remediation shown to the user.
	Hint string
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	cause := e.Err
	if cause == nil {
		cause = e.Kind
	}
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Resource, e.ID, cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, cause)
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Storage wraps a persistence failure. A nil err yields nil.
func Storage(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Resource: resource, ID: id, Kind: ErrStorage, Err: err}
}

// NotFound reports a missing resource.
func NotFound(op, resource, id string) error {
	return &OpError{Op: op, Resource: resource, ID: id, Kind: ErrNotFound, Err: ErrNotFound}
}

// Validation reports rejected input with a reason.
func Validation(op, resource, reason string) error {
	return &OpError{Op: op, Resource: resource, Kind: ErrValidation, Err: fmt.Errorf("%w: %s", ErrValidation, reason)}
}

// PermissionDenied reports that notification permission was refused.
func PermissionDenied(op, hint string) error {
	return &OpError{Op: op, Resource: "notifications", Kind: ErrPermissionDenied, Err: ErrPermissionDenied, Hint: hint}
}

// Hint returns the remediation attached to err, if any.
func Hint(err error) string {
	var op *OpError
	if stderrors.As(err, &op) {
		return op.Hint
	}
	return ""
}

// Is and As mirror the standard library so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
