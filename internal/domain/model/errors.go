package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Every engine error unwraps to exactly one of them so
// callers can classify with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrScheduling = errors.New("scheduling error")
	ErrInvariant  = errors.New("invariant violation")
)

// FieldError names one missing or malformed intake field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError reports an intake that cannot be scheduled as submitted.
// The caller must re-prompt for the listed fields rather than retry.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError with a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field problem was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SchedulingError reports a tournament calendar that cannot fit the horizon.
type SchedulingError struct {
	ReservedWeeks int
	HorizonWeeks  int
	Tournaments   int
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling error: %d tournaments reserve %d weeks, horizon has %d",
		e.Tournaments, e.ReservedWeeks, e.HorizonWeeks)
}

func (e *SchedulingError) Unwrap() error { return ErrScheduling }

// InvariantViolation reports a structural inconsistency in an assembled plan.
// It always indicates a defect in the engine, never bad input.
type InvariantViolation struct {
	Rule   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s: %s", e.Rule, e.Detail)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariant }

// ErrorKind classifies err for metrics and API mapping.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrScheduling):
		return "scheduling"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	default:
		return "internal"
	}
}
