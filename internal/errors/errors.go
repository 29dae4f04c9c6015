// Package errors defines the typed error taxonomy shared by the gateway
// services. Every failure that crosses a service boundary is a *ServiceError
// carrying a stable code and the HTTP status it maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class.
type Code string

const (
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeMisconfigured       Code = "MISCONFIGURED"
	CodeUpstreamUnreachable Code = "UPSTREAM_UNREACHABLE"
	CodeUpstreamError       Code = "UPSTREAM_ERROR"
	CodeUpstreamContract    Code = "UPSTREAM_CONTRACT_VIOLATION"
	CodeInternal            Code = "INTERNAL"
)

// ServiceError is a typed error with an HTTP mapping and optional details.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a key/value pair for diagnostics and returns the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Unauthorized indicates a missing, malformed, or expired credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Unauthorized"
	}
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// InvalidRequest indicates client input that fails validation.
func InvalidRequest(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidRequest, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFound indicates a referenced record is absent.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// InvalidState indicates a record exists but cannot be used for the
// requested operation (e.g. a free or unpriced catalog item at checkout).
func InvalidState(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidState, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Misconfigured indicates required server-side configuration is missing.
// The message names the missing key, never a secret value.
func Misconfigured(message string) *ServiceError {
	return &ServiceError{Code: CodeMisconfigured, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// UpstreamUnreachable indicates the automation backend timed out or the
// connection failed. Safe for the caller to retry.
func UpstreamUnreachable(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeUpstreamUnreachable, Message: message, HTTPStatus: http.StatusBadGateway, cause: cause}
}

// UpstreamError indicates the automation backend answered with a failure
// status. Status and raw body are kept for diagnostics.
func UpstreamError(status int, body string) *ServiceError {
	e := &ServiceError{Code: CodeUpstreamError, Message: "automation backend returned an error", HTTPStatus: http.StatusBadGateway}
	return e.WithDetails("upstream_status", status).WithDetails("upstream_body", body)
}

// UpstreamContract indicates the automation backend answered success but no
// usable value could be recovered from the payload.
func UpstreamContract(message string) *ServiceError {
	return &ServiceError{Code: CodeUpstreamContract, Message: message, HTTPStatus: http.StatusBadGateway}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// GetServiceError extracts a *ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
