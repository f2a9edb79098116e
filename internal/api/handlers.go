// Package api contains the HTTP handlers for the tool invocation service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/services"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Invoker runs a single tool call.
type Invoker interface {
	InvokeTool(ctx context.Context, inv models.Invocation) (models.Output, error)
}

// Runner executes pipelines.
type Runner interface {
	Run(ctx context.Context, pipelineID string, req models.RunRequest) (*models.RunResult, error)
}

// Chatter answers playground prompts.
type Chatter interface {
	Chat(ctx context.Context, req services.ChatRequest) (*services.ChatResponse, error)
}

// Server holds the dependencies for the API server.
type Server struct {
	Repo       repository.Repository
	Engine     Invoker
	Runner     Runner
	Playground Chatter
	Logger     *logging.Logger
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates a new Server.
func NewServer(repo repository.Repository, engine Invoker, runner Runner, playground Chatter, logger *logging.Logger) *Server {
	return &Server{Repo: repo, Engine: engine, Runner: runner, Playground: playground, Logger: logger}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
}

// GetHealth returns basic health status. It answers 200 even when the
// database is down and reports that in the body.
func (s *Server) GetHealth(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "mccarthy",
		Version:   Version,
		Database:  "ok",
	}
	if err := s.Repo.Ping(c.Request().Context()); err != nil {
		status.Database = "unavailable"
	}
	return c.JSON(http.StatusOK, status)
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Code     string `json:"code,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// ErrorHandler renders every error returned by a handler as Problem Details.
// *apperr.Error values choose the status through apperr.HTTPStatus.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		problem := ProblemDetails{Type: "about:blank", Instance: c.Request().URL.Path}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			problem.Status = he.Code
			problem.Detail = fmt.Sprint(he.Message)
		} else {
			problem.Status = apperr.HTTPStatus(err)
			problem.Detail = err.Error()
			problem.Code = string(apperr.CodeOf(err))
		}
		problem.Title = http.StatusText(problem.Status)

		if problem.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "method", c.Request().Method, "path", problem.Instance, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(problem.Status)
			return
		}
		writeProblem(c.Response(), problem)
	}
}

func writeProblem(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
