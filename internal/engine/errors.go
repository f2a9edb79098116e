package engine

import (
	"context"
	"errors"
	"net/http"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
)

// Class is the coarse category reported to callers of InvokeTool.
type Class string

const (
	ClassAuthentication Class = "authentication"
	ClassRateLimit      Class = "rate_limit"
	ClassNetwork        Class = "network"
	ClassExecution      Class = "execution"
)

// InvocationError is returned by InvokeTool for every failure. Its message
// starts with a stable prefix per class; the underlying *apperr.Error stays
// reachable through errors.As and errors.Is.
type InvocationError struct {
	Class  Class
	ToolID string
	Err    error
}

func (e *InvocationError) Error() string {
	detail := e.Err.Error()
	switch e.Class {
	case ClassAuthentication:
		return "Authentication failed: " + detail
	case ClassRateLimit:
		return "API rate limit exceeded. Please try again later: " + detail
	case ClassNetwork:
		return "Network error: Could not connect to API service: " + detail
	}
	return "Tool execution failed: " + detail
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// classify derives the class from the failure code and upstream status.
func classify(err error) Class {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Code {
		case apperr.CodeUpstream:
			switch ae.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return ClassAuthentication
			case http.StatusTooManyRequests:
				return ClassRateLimit
			}
		case apperr.CodeNetwork:
			return ClassNetwork
		}
		return ClassExecution
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassNetwork
	}
	return ClassExecution
}
