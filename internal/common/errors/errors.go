// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUnsupportedOperation  ErrorCode = "UNSUPPORTED_OPERATION"
	ErrCodeMissingParameter      ErrorCode = "MISSING_PARAMETER"
	ErrCodeRemoteFailure         ErrorCode = "REMOTE_FAILURE"
	ErrCodeRemoteTimeout         ErrorCode = "REMOTE_TIMEOUT"
	ErrCodeInputParsingFailed    ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for the throw-error command variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewUnsupportedOperationError is a configuration error on the process side.
func NewUnsupportedOperationError(cause error) *StandardError {
	return newError(ErrCodeUnsupportedOperation, "Unsupported operation", cause)
}

// NewMissingParameterError reports an item without a required parameter.
func NewMissingParameterError(cause error) *StandardError {
	return newError(ErrCodeMissingParameter, "Required parameter missing", cause)
}

// NewRemoteFailureError wraps any non-404 failure of the planner call.
func NewRemoteFailureError(cause error) *StandardError {
	return newError(ErrCodeRemoteFailure, "Remote API call failed", cause)
}

// NewRemoteTimeoutError reports a planner call that hit the deadline.
func NewRemoteTimeoutError(cause error) *StandardError {
	return newError(ErrCodeRemoteTimeout, "Remote API call timed out", cause)
}

// NewInputParsingError reports job variables that are not valid JSON.
func NewInputParsingError(cause error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", cause)
}

// NewInputValidationError reports job variables that do not match the schema.
func NewInputValidationError(details string) *StandardError {
	e := newError(ErrCodeInputValidationFailed, "Input validation failed", nil)
	e.Details = details
	return e
}

// NewInternalError wraps anything that was not classified.
func NewInternalError(cause error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", cause)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN codes are the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		ErrorVariables: vars,
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "REMOTE"):
		return "REMOTE"
	case strings.HasPrefix(codeStr, "INPUT") || code == ErrCodeMissingParameter:
		return "VALIDATION"
	case code == ErrCodeUnsupportedOperation:
		return "CONFIGURATION"
	default:
		return "OTHER"
	}
}
