// Package apperr defines the error kinds surfaced by the ordering services.
//
// Every error that crosses a service boundary carries a stable Kind so the
// HTTP and gRPC bindings can map it without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindPersistence Kind = "persistence"
	// KindUnknown is reported for errors that did not originate here.
	KindUnknown Kind = "unknown"
)

// FieldViolation names one offending input field.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Error struct {
	Kind       Kind
	Message    string
	Violations []FieldViolation
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindPersistence {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a validation error from one or more field violations.
// The message lists every violation so callers without field support still
// see the full picture.
func Validation(violations ...FieldViolation) *Error {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		if v.Field == "" {
			parts = append(parts, v.Reason)
			continue
		}
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return &Error{
		Kind:       KindValidation,
		Message:    "invalid input: " + strings.Join(parts, "; "),
		Violations: violations,
	}
}

// Invalid is shorthand for a validation error on a single field.
func Invalid(field, reason string) *Error {
	return Validation(FieldViolation{Field: field, Reason: reason})
}

func NotFound(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %q not found", entity, id),
	}
}

// Persistence wraps a store failure. op describes what was attempted.
func Persistence(op string, err error) *Error {
	return &Error{
		Kind:    KindPersistence,
		Message: "failed to " + op,
		Err:     err,
	}
}

// KindOf reports the kind of err, looking through wrapped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }

// ViolationsOf returns the field violations carried by err, if any.
func ViolationsOf(err error) []FieldViolation {
	var e *Error
	if errors.As(err, &e) {
		return e.Violations
	}
	return nil
}
