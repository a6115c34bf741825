// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Loom.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Loom errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a skill, wrapper, or session was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnsupportedHook indicates a skill was invoked at a hook point it
	// does not declare support for.
	CodeUnsupportedHook ErrorCode = "UNSUPPORTED_HOOK"

	// CodeInvalidOverride indicates a config override value could not be
	// parsed for a typed field.
	CodeInvalidOverride ErrorCode = "INVALID_OVERRIDE"

	// CodePersistenceFailure indicates the event store failed to persist.
	CodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"

	// CodeRegistryViolation indicates an attempt to break the
	// one-session-per-task invariant.
	CodeRegistryViolation ErrorCode = "REGISTRY_VIOLATION"
)

// LoomError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type LoomError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *LoomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *LoomError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *LoomError) MarshalJSON() ([]byte, error) {
	type Alias LoomError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new LoomError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *LoomError {
	return &LoomError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// NotFound creates a NOT_FOUND error for the given entity kind and id.
func NotFound(kind, id string) *LoomError {
	return New(CodeNotFound, fmt.Sprintf("%s %q not found", kind, id), nil).
		WithContext("kind", kind).
		WithContext("id", id)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *LoomError) WithContext(key string, value interface{}) *LoomError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *LoomError) WithRecoverable(recoverable bool) *LoomError {
	e.Recoverable = recoverable
	return e
}

// AsLoomError attempts to convert an error to a LoomError.
// Returns the error as LoomError if it is one, or wraps it otherwise.
func AsLoomError(err error) *LoomError {
	if err == nil {
		return nil
	}
	var le *LoomError
	if stderrors.As(err, &le) {
		return le
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	var le *LoomError
	if !stderrors.As(err, &le) {
		return false
	}
	return le.Code == code
}
