// Package errors defines the typed errors surfaced by the Suiven client layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a ServiceError.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeConfigMissing    Code = "CONFIG_MISSING"
	CodeSubmissionFailed Code = "SUBMISSION_FAILED"
	CodeRPC              Code = "RPC_ERROR"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL"
)

// Sentinels for errors.Is checks.
var (
	ErrNotFound         = stderrors.New("not found")
	ErrInvalidInput     = stderrors.New("invalid input")
	ErrConfigMissing    = stderrors.New("configuration missing")
	ErrSubmissionFailed = stderrors.New("submission failed")
	ErrRPC              = stderrors.New("rpc failure")
	ErrRateLimited      = stderrors.New("rate limited")
)

// ServiceError is a classified error with an HTTP mapping and optional details.
type ServiceError struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's code.
func (e *ServiceError) Is(target error) bool {
	switch e.Code {
	case CodeNotFound:
		return target == ErrNotFound
	case CodeInvalidInput:
		return target == ErrInvalidInput
	case CodeConfigMissing:
		return target == ErrConfigMissing
	case CodeSubmissionFailed:
		return target == ErrSubmissionFailed
	case CodeRPC:
		return target == ErrRPC
	case CodeRateLimited:
		return target == ErrRateLimited
	}
	return false
}

// WithDetails attaches a key/value pair and returns the error.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NotFound reports a missing or mismatched ledger object.
func NotFound(kind, id string) *ServiceError {
	msg := kind + " not found"
	if id != "" {
		msg = fmt.Sprintf("%s %q not found", kind, id)
	}
	return &ServiceError{Code: CodeNotFound, Message: msg, HTTPStatus: http.StatusNotFound}
}

// InvalidInput reports a rejected user-supplied value.
func InvalidInput(field, reason string) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidInput,
		Message:    fmt.Sprintf("%s: %s", field, reason),
		HTTPStatus: http.StatusBadRequest,
	}
}

// ConfigMissing reports an unset identifier required by a write operation.
func ConfigMissing(what, envVar string) *ServiceError {
	msg := what + " is not configured"
	if envVar != "" {
		msg += ". Set " + envVar + "."
	}
	return (&ServiceError{
		Code:       CodeConfigMissing,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}).WithDetails("env", envVar)
}

// SubmissionFailed wraps a wallet or ledger failure; the message is the cause's, verbatim.
func SubmissionFailed(err error) *ServiceError {
	msg := "transaction submission failed"
	if err != nil {
		msg = err.Error()
	}
	return &ServiceError{
		Code:       CodeSubmissionFailed,
		Message:    msg,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// RPC wraps a JSON-RPC failure reported by the ledger node.
func RPC(method string, err error) *ServiceError {
	return (&ServiceError{
		Code:       CodeRPC,
		Message:    "ledger rpc " + method + " failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}).WithDetails("method", method)
}

// RateLimitExceeded reports that the client-side limiter refused a call.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return (&ServiceError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("rate limit of %d per %s exceeded", limit, window),
		HTTPStatus: http.StatusTooManyRequests,
	}).WithDetails("limit", limit)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// GetServiceError extracts a ServiceError from err's chain.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus maps err to a status code, defaulting to 500.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil && se.HTTPStatus != 0 {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool         { return stderrors.Is(err, ErrNotFound) }
func IsInvalidInput(err error) bool     { return stderrors.Is(err, ErrInvalidInput) }
func IsConfigMissing(err error) bool    { return stderrors.Is(err, ErrConfigMissing) }
func IsSubmissionFailed(err error) bool { return stderrors.Is(err, ErrSubmissionFailed) }
