package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Data errors
	ErrNoData             = errors.New("no data found in input")
	ErrSeriesTooShort     = errors.New("series too short for requested model order")
	ErrMissingTimestamp   = errors.New("missing or unparseable timestamp")
	ErrDuplicateTimestamp = errors.New("duplicate timestamp in series")

	// Model errors
	ErrModelNotFitted = errors.New("model must be fitted before use")
	ErrFitDiverged    = errors.New("model fit did not converge")
	ErrNoViableModel  = errors.New("no candidate model could be fitted")
	ErrInvalidOrder   = errors.New("invalid model order")
	ErrInvalidHorizon = errors.New("forecast horizon must be at least 1")
	ErrLengthMismatch = errors.New("actual and forecast lengths differ")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrConfigurationLoad    = errors.New("failed to load configuration")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeData          ErrorType = "data"
	ErrorTypeModel         ErrorType = "model"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewDataError creates a data error
func NewDataError(code, message string) *AppError {
	return NewAppError(ErrorTypeData, code, message)
}

// NewModelError creates a model error
func NewModelError(code, message string) *AppError {
	return NewAppError(ErrorTypeModel, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalError,
		Message: message,
	}
}

// IsErrorType reports whether err is an AppError of the given type,
// unwrapping as needed.
func IsErrorType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Error codes for different error scenarios
const (
	// Validation error codes
	CodeInvalidInput   = "INVALID_INPUT"
	CodeMissingField   = "MISSING_FIELD"
	CodeInvalidFormat  = "INVALID_FORMAT"
	CodeOutOfRange     = "OUT_OF_RANGE"
	CodeLengthMismatch = "LENGTH_MISMATCH"

	// Data error codes
	CodeNoData           = "NO_DATA"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeBadTimestamp     = "BAD_TIMESTAMP"
	CodeBadValue         = "BAD_VALUE"

	// Model error codes
	CodeFitFailed       = "FIT_FAILED"
	CodeFitDiverged     = "FIT_DIVERGED"
	CodeNotFitted       = "NOT_FITTED"
	CodeInvalidOrder    = "INVALID_ORDER"
	CodeInvalidHorizon  = "INVALID_HORIZON"
	CodeSelectionFailed = "SELECTION_FAILED"

	// Configuration error codes
	CodeConfigLoad    = "CONFIG_LOAD"
	CodeConfigInvalid = "CONFIG_INVALID"

	// Internal error codes
	CodeInternalError = "INTERNAL_ERROR"
)
