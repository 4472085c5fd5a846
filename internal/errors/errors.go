// Package errors holds the error definitions shared by every speedlog package.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Typed errors for parse, fetch, measurement and coercion failures
// - Error category checking functions
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound     = errors.New("not found")
	ErrDumpNotFound = errors.New("oui dump not found")

	// Validation errors
	ErrInvalidField  = errors.New("invalid field")
	ErrInvalidPrefix = errors.New("invalid oui prefix")
	ErrInvalidMAC    = errors.New("invalid mac address")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")

	// Collaborator errors
	ErrParse       = errors.New("oui parse error")
	ErrFetch       = errors.New("fetch error")
	ErrMeasurement = errors.New("measurement error")

	// Internal errors
	ErrDatabase     = errors.New("database error")
	ErrStoreClosed  = errors.New("store is closed")
	ErrWriterClosed = errors.New("writer is closed")
)

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// ============================================================================
// Typed errors
// ============================================================================

// ParseError reports a malformed block of the OUI registry dump.
// Block is the 1-based position of the block in the dump.
type ParseError struct {
	Block  int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("oui block %d: %s", e.Block, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// FetchError reports a failed HTTP retrieval (registry dump, public IP, geo info).
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// MeasurementError reports a failure of the speed-test driver.
type MeasurementError struct {
	Stage string
	Err   error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("measurement %s: %v", e.Stage, e.Err)
}

func (e *MeasurementError) Unwrap() []error { return []error{ErrMeasurement, e.Err} }

// CoercionError reports a raw value that could not be converted to the
// declared type of a session field.
type CoercionError struct {
	Field string
	Value string
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %s: cannot coerce %q: %v", e.Field, e.Value, e.Err)
}

func (e *CoercionError) Unwrap() []error { return []error{ErrInvalidField, e.Err} }

// ============================================================================
// Helper functions for error checking
// ============================================================================

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDumpNotFound)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidPrefix) ||
		errors.Is(err, ErrInvalidMAC) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsParse returns true if err came from the registry parser.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsFetch returns true if err came from a network fetch.
func IsFetch(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsMeasurement returns true if err came from the speed-test driver.
func IsMeasurement(err error) bool {
	return errors.Is(err, ErrMeasurement)
}

// IsDatabase returns true if err is a failure of the database itself.
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
