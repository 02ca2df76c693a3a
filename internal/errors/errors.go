// Package errors provides the error taxonomy shared by the gallery engine,
// the gateway client and the presentation API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code.
type ErrorCode string

const (
	// Input errors, rejected before any gateway call
	LUXY_VALIDATION ErrorCode = "LUXY_VALIDATION" // Bad input shape (rating outside 1-5, blank name)
	LUXY_NOT_FOUND  ErrorCode = "LUXY_NOT_FOUND"  // Operation targets an unknown id

	// Remote errors, surfaced as values so callers can retry
	LUXY_AUTH     ErrorCode = "LUXY_AUTH"     // 401/403, expired or invalid credentials
	LUXY_NETWORK  ErrorCode = "LUXY_NETWORK"  // Transport failure, timeout or gateway 5xx
	LUXY_CONFLICT ErrorCode = "LUXY_CONFLICT" // Duplicate like/rating, item already in collection

	LUXY_INTERNAL ErrorCode = "LUXY_INTERNAL" // Anything else
)

// Error represents a standardized error.
type Error struct {
	Code          ErrorCode   `json:"code"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Details       interface{} `json:"details,omitempty"`
	HTTPStatus    int         `json:"-"`
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatusCodeForCode(code),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithDetails creates a new Error with the specified code, message, and details.
func NewWithDetails(code ErrorCode, message string, details interface{}) *Error {
	e := New(code, message)
	e.Details = details
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithCorrelationID returns a copy of e tagged with the given correlation id.
func (e *Error) WithCorrelationID(id string) *Error {
	c := *e
	c.CorrelationID = id
	return &c
}

// CodeOf returns the ErrorCode carried by err, or LUXY_INTERNAL when err
// is not (and does not wrap) an *Error. A nil err has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return LUXY_INTERNAL
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// As converts err to an *Error, wrapping foreign errors as LUXY_INTERNAL.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(LUXY_INTERNAL, err.Error())
}

// FromHTTPStatus maps a gateway response status to an error code.
// Statuses below 400 have no code.
func FromHTTPStatus(status int) ErrorCode {
	switch {
	case status < 400:
		return ""
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return LUXY_AUTH
	case status == http.StatusNotFound:
		return LUXY_NOT_FOUND
	case status == http.StatusConflict:
		return LUXY_CONFLICT
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return LUXY_NETWORK
	default:
		return LUXY_VALIDATION
	}
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case LUXY_VALIDATION:
		return http.StatusBadRequest
	case LUXY_AUTH:
		return http.StatusUnauthorized
	case LUXY_NOT_FOUND:
		return http.StatusNotFound
	case LUXY_CONFLICT:
		return http.StatusConflict
	case LUXY_NETWORK:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
