package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the closed set of error kinds returned by the API.
type ErrorCode string

// Authentication error codes
const (
	ErrAuthRequired ErrorCode = "AUTH_REQUIRED"
	ErrAuthInvalid  ErrorCode = "AUTH_INVALID"
	ErrAuthExpired  ErrorCode = "AUTH_EXPIRED"
)

// Throttling error codes
const (
	ErrRateLimited   ErrorCode = "RATE_LIMITED"
	ErrQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
)

// Input validation error codes
const (
	ErrInvalidProvider   ErrorCode = "INVALID_PROVIDER"
	ErrInvalidModel      ErrorCode = "INVALID_MODEL"
	ErrInvalidPrompt     ErrorCode = "INVALID_PROMPT"
	ErrInvalidDimensions ErrorCode = "INVALID_DIMENSIONS"
	ErrInvalidParams     ErrorCode = "INVALID_PARAMS"
)

// Upstream and internal error codes
const (
	ErrProviderError    ErrorCode = "PROVIDER_ERROR"
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrUpstreamError    ErrorCode = "UPSTREAM_ERROR"
	ErrTimeout          ErrorCode = "TIMEOUT"
	ErrUnknown          ErrorCode = "UNKNOWN"
)

// codeStatus is the fixed code -> HTTP status table. It is the only place a
// status is ever decided.
var codeStatus = map[ErrorCode]int{
	ErrAuthRequired:      http.StatusUnauthorized,
	ErrAuthInvalid:       http.StatusUnauthorized,
	ErrAuthExpired:       http.StatusUnauthorized,
	ErrRateLimited:       http.StatusTooManyRequests,
	ErrQuotaExceeded:     http.StatusTooManyRequests,
	ErrInvalidProvider:   http.StatusBadRequest,
	ErrInvalidModel:      http.StatusBadRequest,
	ErrInvalidPrompt:     http.StatusBadRequest,
	ErrInvalidDimensions: http.StatusBadRequest,
	ErrInvalidParams:     http.StatusBadRequest,
	ErrProviderError:     http.StatusBadGateway,
	ErrGenerationFailed:  http.StatusInternalServerError,
	ErrUpstreamError:     http.StatusBadGateway,
	ErrTimeout:           http.StatusGatewayTimeout,
	ErrUnknown:           http.StatusInternalServerError,
}

// AllErrorCodes returns every code of the taxonomy.
func AllErrorCodes() []ErrorCode {
	return []ErrorCode{
		ErrAuthRequired, ErrAuthInvalid, ErrAuthExpired,
		ErrRateLimited, ErrQuotaExceeded,
		ErrInvalidProvider, ErrInvalidModel, ErrInvalidPrompt, ErrInvalidDimensions, ErrInvalidParams,
		ErrProviderError, ErrGenerationFailed, ErrUpstreamError, ErrTimeout, ErrUnknown,
	}
}

// Valid reports whether c belongs to the taxonomy.
func (c ErrorCode) Valid() bool {
	_, ok := codeStatus[c]
	return ok
}

// HTTPStatus returns the canonical status for the code. Codes outside the
// taxonomy map to 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// ErrorDetails carries what a caller needs to render a provider-aware message
// without parsing Message.
type ErrorDetails struct {
	Provider   string `json:"provider,omitempty"`
	Upstream   string `json:"upstream,omitempty"`
	Field      string `json:"field,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"` // seconds
}

// IsZero reports whether no detail is set.
func (d ErrorDetails) IsZero() bool {
	return d == ErrorDetails{}
}

// Error is a taxonomy error. Its HTTP status is derived from Code and cannot
// be set independently.
type Error struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details ErrorDetails `json:"details,omitempty"`
	Cause   error        `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status fixed for the error's code.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithProvider sets the provider id.
func (e *Error) WithProvider(provider string) *Error {
	e.Details.Provider = provider
	return e
}

// WithUpstream attaches the raw upstream message.
func (e *Error) WithUpstream(msg string) *Error {
	e.Details.Upstream = msg
	return e
}

// WithField names the offending input field.
func (e *Error) WithField(field string) *Error {
	e.Details.Field = field
	return e
}

// WithRetryAfter sets the suggested wait in seconds.
func (e *Error) WithRetryAfter(seconds int) *Error {
	e.Details.RetryAfter = seconds
	return e
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// FromError converts any error into the taxonomy. Taxonomy errors pass
// through; deadline expiry becomes TIMEOUT; anything else becomes UNKNOWN and
// keeps the original only as Cause.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrTimeout, "request timed out").WithCause(err)
	}
	return NewError(ErrUnknown, "an unexpected error occurred").WithCause(err)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
