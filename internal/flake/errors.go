package flake

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes flakelab errors for CLI output and diagnostics.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates invalid distribution or probability parameters.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeDuplicateName indicates a scenario name was registered twice.
	ErrCodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// ErrCodeNotFound indicates a lookup for an unregistered scenario.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInsufficientSamples indicates classification was requested on too few runs.
	ErrCodeInsufficientSamples ErrorCode = "INSUFFICIENT_SAMPLES"
)

// ConfigurationError reports an out-of-range or missing parameter.
// It is fatal: the caller must fix the configuration before running.
type ConfigurationError struct {
	// Field names the offending parameter (e.g., "pass_probability").
	Field string

	// Value is the rejected value rendered as text. May be empty.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s: %s (got %s)", ErrCodeConfiguration, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCodeConfiguration, e.Field, e.Message)
}

// Code returns ErrCodeConfiguration.
func (e *ConfigurationError) Code() ErrorCode { return ErrCodeConfiguration }

// DuplicateNameError is returned when registering a name twice.
type DuplicateNameError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s: scenario %q is already registered", ErrCodeDuplicateName, e.Name)
}

// Code returns ErrCodeDuplicateName.
func (e *DuplicateNameError) Code() ErrorCode { return ErrCodeDuplicateName }

// NotFoundError is returned when looking up an unregistered scenario.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: scenario %q is not registered", ErrCodeNotFound, e.Name)
}

// Code returns ErrCodeNotFound.
func (e *NotFoundError) Code() ErrorCode { return ErrCodeNotFound }

// InsufficientSamplesError is returned when classifying fewer than the
// minimum number of runs. Recoverable by running more samples.
type InsufficientSamplesError struct {
	Have int
	Need int
}

// Error implements the error interface.
func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("%s: classification needs at least %d runs, have %d", ErrCodeInsufficientSamples, e.Need, e.Have)
}

// Code returns ErrCodeInsufficientSamples.
func (e *InsufficientSamplesError) Code() ErrorCode { return ErrCodeInsufficientSamples }

// Configf builds a ConfigurationError for field with a formatted value.
func Configf(field string, value any, message string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Value:   fmt.Sprint(value),
		Message: message,
	}
}

// CodeOf returns the ErrorCode carried by err, or "" if none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var coded interface{ Code() ErrorCode }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// IsConfigurationError returns true if err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsDuplicateName returns true if err is (or wraps) a DuplicateNameError.
func IsDuplicateName(err error) bool {
	var de *DuplicateNameError
	return errors.As(err, &de)
}

// IsNotFound returns true if err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsInsufficientSamples returns true if err is (or wraps) an InsufficientSamplesError.
func IsInsufficientSamples(err error) bool {
	var ie *InsufficientSamplesError
	return errors.As(err, &ie)
}
