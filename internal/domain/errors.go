package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidField marks a malformed field path.
	ErrInvalidField = errors.New("invalid field")
	// ErrUnknownRelationship marks a relation segment the data source does not know.
	ErrUnknownRelationship = errors.New("unknown relationship")
	// ErrValidationFailed marks an editable column rule violation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrNotAuthorized marks a denied visibility or authorization predicate.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrRecordNotFound marks an id lookup that matched nothing.
	ErrRecordNotFound = errors.New("record not found")
)

// FieldError describes why a field path was rejected.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Err, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func invalidField(field, reason string) error {
	return &FieldError{Field: field, Reason: reason, Err: ErrInvalidField}
}

// UnknownRelationshipError reports the relation that could not be resolved.
func UnknownRelationshipError(path, relation string) error {
	return &FieldError{Field: path, Reason: fmt.Sprintf("relation %q is not defined", relation), Err: ErrUnknownRelationship}
}

// ValidationError is a field scoped rule violation surfaced to the caller.
type ValidationError struct {
	Field    string
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: %s", ErrValidationFailed, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidationFailed, e.Field, e.Messages[0])
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
