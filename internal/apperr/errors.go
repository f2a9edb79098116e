// Package apperr defines the failure codes shared by the invocation engine,
// the pipeline orchestrator and the transports in front of them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable failure class.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeConfiguration     Code = "CONFIGURATION_ERROR"
	CodeModelNotAvailable Code = "MODEL_NOT_AVAILABLE"
	CodeUpstream          Code = "UPSTREAM_ERROR"
	CodeNetwork           Code = "NETWORK_ERROR"
	CodeEmptyPipeline     Code = "EMPTY_PIPELINE"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrValidation        = &Error{Code: CodeValidation}
	ErrConfiguration     = &Error{Code: CodeConfiguration}
	ErrModelNotAvailable = &Error{Code: CodeModelNotAvailable}
	ErrUpstream          = &Error{Code: CodeUpstream}
	ErrNetwork           = &Error{Code: CodeNetwork}
	ErrEmptyPipeline     = &Error{Code: CodeEmptyPipeline}
)

// Error is a classified failure. StatusCode carries the upstream HTTP status
// for CodeUpstream and is zero otherwise.
type Error struct {
	Code       Code
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Cause != nil:
		return e.Cause.Error()
	case e.Message == "":
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error that keeps cause reachable through errors.Unwrap.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

func Configuration(format string, args ...any) *Error {
	return New(CodeConfiguration, format, args...)
}

func ModelNotAvailable(model, tool string) *Error {
	return New(CodeModelNotAvailable, "model %q is not available for tool %s", model, tool)
}

// Upstream records a non-success response from a provider.
func Upstream(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Code: CodeUpstream, StatusCode: status, Message: message}
}

// Network records a transport failure or timeout.
func Network(cause error) *Error {
	return &Error{Code: CodeNetwork, Message: cause.Error(), Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, CodeInternal
// when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a failure to the status a transport should answer with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound, CodeEmptyPipeline:
		return http.StatusNotFound
	case CodeValidation, CodeModelNotAvailable:
		return http.StatusBadRequest
	case CodeConfiguration, CodeUpstream, CodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
