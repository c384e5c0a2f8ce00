// Package errors defines the typed failure taxonomy shared across searchd.
//
// Every failure mode the orchestrator, breaker, or governance layer can
// raise is represented as a SearchdError carrying a stable Code, a
// human message, and an optional wrapped cause. Callers should branch
// on Code, not on message text.
package errors

import (
	"fmt"
)

// Code is a stable identifier for a failure mode.
type Code string

const (
	// ErrConnection indicates a backend (cache or database) is unreachable.
	ErrConnection Code = "CONNECTION_ERROR"
	// ErrTimeout indicates a request exceeded its configured timeout.
	ErrTimeout Code = "TIMEOUT"
	// ErrCircuitOpen is generated by the breaker when a backend is tripped.
	ErrCircuitOpen Code = "CIRCUIT_BREAKER_OPEN"
	// ErrSearch indicates a generic backend search failure.
	ErrSearch Code = "SEARCH_ERROR"
	// ErrSecurityAccessDenied is raised only by the governance layer.
	ErrSecurityAccessDenied Code = "SECURITY_ACCESS_DENIED"
	// ErrHybridCompleteFailure indicates both hybrid backends failed.
	ErrHybridCompleteFailure Code = "HYBRID_SEARCH_COMPLETE_FAILURE"
	// ErrConfig indicates a fatal configuration or policy-loading problem.
	ErrConfig Code = "CONFIG_ERROR"
	// ErrBackendUnavailable indicates no backend could service the request at all.
	ErrBackendUnavailable Code = "BACKEND_UNAVAILABLE"
	// ErrInvalidRequest indicates the caller supplied a malformed request.
	ErrInvalidRequest Code = "INVALID_REQUEST"
	// ErrNotFound indicates the requested resource (such as a seed job) does not exist.
	ErrNotFound Code = "NOT_FOUND"
)

// SearchdError is the concrete error type returned across package
// boundaries. It wraps an underlying cause (if any) without exposing it
// through JSON, so HTTP responses never leak internal error context.
type SearchdError struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a SearchdError with no wrapped cause.
func New(code Code, message string) *SearchdError {
	return &SearchdError{Code: code, Message: message}
}

// Wrap creates a SearchdError that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *SearchdError {
	return &SearchdError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *SearchdError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SearchdError) Unwrap() error {
	return e.cause
}

// WithDetails attaches structured details to the error and returns it.
func (e *SearchdError) WithDetails(details interface{}) *SearchdError {
	e.Details = details
	return e
}

// CodeOf extracts the Code from err if it is (or wraps) a SearchdError,
// else returns "".
func CodeOf(err error) Code {
	var se *SearchdError
	for err != nil {
		if s, ok := err.(*SearchdError); ok {
			se = s
			break
		}
		unwrappable, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrappable.Unwrap()
	}
	if se == nil {
		return ""
	}
	return se.Code
}

// FixActionType categorizes a suggested remediation for an error.
type FixActionType string

const (
	RunCommand FixActionType = "run-command"
	OpenDocs   FixActionType = "open-docs"
)

// FixAction is a suggested operator remediation for an error code.
// internal/api's WriteError includes the fixes for a SearchdError's
// code in every error body; they are static hints and carry no wrapped
// cause text.
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
}

// suggestedFixes maps error codes to operator-facing remediation hints.
var suggestedFixes = map[Code][]FixAction{
	ErrConnection: {
		{Type: RunCommand, Command: "searchd status", Description: "Check backend connectivity and credentials"},
	},
	ErrCircuitOpen: {
		{Type: RunCommand, Command: "searchd status", Description: "Inspect breaker state and recent failures"},
	},
	ErrConfig: {
		{Type: OpenDocs, Description: "Review the configuration reference for required fields"},
	},
	ErrBackendUnavailable: {
		{Type: RunCommand, Command: "searchd status", Description: "Check which backends are registered and healthy"},
	},
}

// SuggestedFixes returns the suggested fixes for a code, or nil.
func SuggestedFixes(code Code) []FixAction {
	return suggestedFixes[code]
}

// NewConnectionError builds an ErrConnection for the named backend.
func NewConnectionError(backend string, cause error) *SearchdError {
	return Wrap(ErrConnection, fmt.Sprintf("%s backend unreachable", backend), cause)
}

// NewTimeoutError builds an ErrTimeout for the named operation.
func NewTimeoutError(operation string, cause error) *SearchdError {
	return Wrap(ErrTimeout, fmt.Sprintf("%s timed out", operation), cause)
}

// NewCircuitOpenError builds an ErrCircuitOpen for the named backend.
func NewCircuitOpenError(backend string) *SearchdError {
	return New(ErrCircuitOpen, fmt.Sprintf("circuit breaker open for backend %q", backend))
}

// NewSearchError builds a generic ErrSearch for the named backend.
func NewSearchError(backend string, cause error) *SearchdError {
	return Wrap(ErrSearch, fmt.Sprintf("%s search failed", backend), cause)
}

// NewSecurityAccessDeniedError builds an ErrSecurityAccessDenied.
func NewSecurityAccessDeniedError(reason string) *SearchdError {
	return New(ErrSecurityAccessDenied, reason)
}

// NewHybridCompleteFailureError wraps both hybrid backend causes.
func NewHybridCompleteFailureError(cacheErr, dbErr error) *SearchdError {
	e := New(ErrHybridCompleteFailure, "both cache and database backends failed")
	e.Details = map[string]string{
		"cacheError":    errString(cacheErr),
		"databaseError": errString(dbErr),
	}
	return e
}

// NewConfigError builds a fatal ErrConfig.
func NewConfigError(message string, cause error) *SearchdError {
	return Wrap(ErrConfig, message, cause)
}

// NewBackendUnavailableError builds an ErrBackendUnavailable.
func NewBackendUnavailableError(message string) *SearchdError {
	return New(ErrBackendUnavailable, message)
}

// NewInvalidRequestError builds an ErrInvalidRequest.
func NewInvalidRequestError(message string) *SearchdError {
	return New(ErrInvalidRequest, message)
}

// NewNotFoundError builds an ErrNotFound for the named resource.
func NewNotFoundError(message string) *SearchdError {
	return New(ErrNotFound, message)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
