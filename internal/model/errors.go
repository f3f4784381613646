package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is the base lookup failure. Wrap it via NotFoundError to name
// the missing entity.
var ErrNotFound = errors.New("not found")

// ErrNoEligibleWork means an optimization found zero eligible tasks or zero
// available teams. Terminal, and distinct from ErrNotFound.
var ErrNoEligibleWork = errors.New("no eligible tasks or teams")

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError for the given entity kind and id.
func NotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// InvalidInputError reports a malformed or out-of-range request field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds an InvalidInputError for the given field.
func Invalid(field, reason string) error { return &InvalidInputError{Field: field, Reason: reason} }

// IsInvalidInput reports whether err carries an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}
