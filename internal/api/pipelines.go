package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/auth"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/pipeline"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// PipelineFailure is the body of a run aborted by a failing segment.
type PipelineFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Order   int    `json:"order"`
}

// RunPipeline executes a pipeline
// (POST /api/v1/pipelines/{pipelineId}/run)
func (s *Server) RunPipeline(c echo.Context, pipelineID string) error {
	ctx := c.Request().Context()

	var req models.RunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if user, ok := auth.UserFromContext(ctx); ok {
		req.Owner = user
	}

	res, err := s.Runner.Run(ctx, pipelineID, req)
	if err != nil {
		var chainErr *pipeline.ChainError
		if errors.As(err, &chainErr) {
			return c.JSON(http.StatusInternalServerError, PipelineFailure{
				Error:   "Pipeline execution failed",
				Message: chainErr.Error(),
				Order:   chainErr.Order,
			})
		}
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// SegmentRunList is the body of GET /pipelines/{pipelineId}/runs.
type SegmentRunList struct {
	Count int                  `json:"count"`
	Runs  []*models.SegmentRun `json:"runs"`
}

// ListPipelineRuns returns the ledger entries of a pipeline
// (GET /api/v1/pipelines/{pipelineId}/runs)
func (s *Server) ListPipelineRuns(c echo.Context, pipelineID string) error {
	ctx := c.Request().Context()

	p, err := s.Repo.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if user, ok := auth.UserFromContext(ctx); ok && p.OwnerID != user {
		return echo.NewHTTPError(http.StatusNotFound, "pipeline "+pipelineID+" not found")
	}

	runs, err := s.Repo.ListSegmentRuns(ctx, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SegmentRunList{Count: len(runs), Runs: runs})
}

// GetSegmentRun returns one ledger entry
// (GET /api/v1/segment-runs/{segmentRunId})
func (s *Server) GetSegmentRun(c echo.Context, segmentRunID string) error {
	ctx := c.Request().Context()

	run, err := s.Repo.GetSegmentRun(ctx, segmentRunID)
	if err != nil {
		return err
	}
	if user, ok := auth.UserFromContext(ctx); ok {
		p, err := s.Repo.GetPipeline(ctx, run.PipelineID)
		if err != nil || p.OwnerID != user {
			return echo.NewHTTPError(http.StatusNotFound, "segment run "+segmentRunID+" not found")
		}
	}
	return c.JSON(http.StatusOK, run)
}
