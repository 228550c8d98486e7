package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of these,
// so callers can branch with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrValidationFailed = errors.New("validation failed")
	ErrStorageFailure   = errors.New("storage failure")
)

// Specific errors, each wrapping its kind.
var (
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrEventNotFound     = fmt.Errorf("event %w", ErrNotFound)
	ErrAlreadyBooked     = fmt.Errorf("%w: event already booked", ErrConflict)
	ErrDuplicateUsername = fmt.Errorf("%w: username already in use", ErrConflict)
	ErrNotParticipant    = fmt.Errorf("%w: user is not a participant of the event", ErrForbidden)
	ErrAdminRequired     = fmt.Errorf("%w: admin required", ErrForbidden)
	ErrEventNotFinished  = fmt.Errorf("%w: event has not taken place yet", ErrValidationFailed)
	ErrInvalidCredential = errors.New("invalid credentials")
)

// FieldError reports a missing or malformed input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidationFailed }

// NewFieldError returns a FieldError for field. An empty reason means the field is missing.
func NewFieldError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

// StorageError is returned when the backing store could not complete an
// operation. The transaction it happened in has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageFailure, e.Err} }

// AsStorageError wraps err as a StorageError unless it already carries a
// domain kind. Nil stays nil.
func AsStorageError(op string, err error) error {
	if err == nil || KindOf(err) != nil {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// KindOf returns the kind sentinel err wraps, or nil for an unclassified error.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrForbidden, ErrValidationFailed, ErrStorageFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
