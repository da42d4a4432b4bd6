package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds raised while interpreting a run. Callers test for them with
// errors.Is; the concrete error usually wraps one of these with context.
var (
	// ErrMalformedInputRecord drops a single record; the run continues.
	ErrMalformedInputRecord = errors.New("malformed input record")
	// ErrMissingRequiredColumn is fatal for the whole run.
	ErrMissingRequiredColumn = errors.New("missing required column")
	// ErrUnknownOrganism is fatal for the affected sample only.
	ErrUnknownOrganism = errors.New("no rules available for organism")
	// ErrDuplicateSampleOrganism is raised when a sample is assigned to
	// more than one organism.
	ErrDuplicateSampleOrganism = errors.New("sample assigned to more than one organism")
	// ErrAmbiguousCombinationLogic marks a combination rule that cannot be
	// evaluated. The rule is treated as not matching.
	ErrAmbiguousCombinationLogic = errors.New("ambiguous combination logic")
	// ErrNoOrganism is raised when a sample has no organism assignment.
	ErrNoOrganism = errors.New("no organism assigned to sample")
)

// ColumnError reports required columns absent from a table header.
type ColumnError struct {
	Table   string
	Missing []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Table, ErrMissingRequiredColumn, strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrMissingRequiredColumn.
func (e *ColumnError) Unwrap() error {
	return ErrMissingRequiredColumn
}

// RecordError ties a per-record failure to its input line.
type RecordError struct {
	Line   int
	Sample string
	Symbol string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d (%s %s): %v", e.Line, e.Sample, e.Symbol, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedInputRecord, e.Err}
}

// ValidationError represents a rejected configuration or request value.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
