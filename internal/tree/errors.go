package tree

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/emrgen/doctree/internal/store"
)

// Sentinel errors, use with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConsistency = errors.New("consistency violation")
)

type (
	// ValidationError reports invalid input detected before any write.
	ValidationError struct {
		Message string
		Err     error
	}

	// NotFoundError reports a referenced parent, original, type or site that
	// does not exist.
	NotFoundError struct {
		Resource string
		Key      any
	}

	// ConsistencyError reports an operation that would break a tree invariant.
	ConsistencyError struct {
		Message string
	}
)

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *ConsistencyError) Error() string { return e.Message }

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func inconsistent(format string, args ...any) error {
	return &ConsistencyError{Message: fmt.Sprintf(format, args...)}
}

// validationFailed wraps the result of an ozzo validation, keeping nil as nil.
func validationFailed(message string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return &ValidationError{Message: message, Err: verrs}
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return &ValidationError{Message: message, Err: err}
}

// lookupFailed turns a store not found into a NotFoundError and passes other
// errors through.
func lookupFailed(resource string, key any, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return err
}
