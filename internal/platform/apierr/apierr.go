package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Validation is a caller-fixable input problem. Nothing was mutated.
func Validation(code string, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, fmt.Errorf(format, args...))
}

func NotFound(code string, format string, args ...any) *Error {
	return New(http.StatusNotFound, code, fmt.Errorf(format, args...))
}

// Upstream wraps a store or answer-engine failure. The wrapped detail is for logs only.
func Upstream(code string, err error) *Error {
	return New(http.StatusInternalServerError, code, err)
}

func Timeout(code string, err error) *Error {
	return New(http.StatusGatewayTimeout, code, err)
}

// FromContext classifies err as a Timeout when it stems from an expired deadline,
// otherwise as Upstream with the given code.
func FromContext(code string, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(code+"_timeout", err)
	}
	return Upstream(code, err)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return "internal_error"
}

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
