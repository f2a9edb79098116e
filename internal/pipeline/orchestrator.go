// Package pipeline runs the segments of a pipeline in order, threading each
// segment's output into the next and recording every step in the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

const instrumentationName = "github.com/jyoshithareddy08/McCarthy2.0/internal/pipeline"

// Invoker runs a single tool call. *engine.Engine satisfies it.
type Invoker interface {
	InvokeTool(ctx context.Context, inv models.Invocation) (models.Output, error)
}

// Store is the persistence the orchestrator needs.
type Store interface {
	repository.PipelineStore
	repository.SegmentStore
	repository.RunLedger
}

// ChainError aborts a run. It names the segment that failed.
type ChainError struct {
	Order     int
	SegmentID string
	Err       error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("Pipeline execution failed at segment %d: %s", e.Order, e.Err.Error())
}

func (e *ChainError) Unwrap() error { return e.Err }

// Orchestrator executes pipelines. It holds no per-run state, so concurrent
// runs are independent.
type Orchestrator struct {
	store   Store
	invoker Invoker
	logger  *logging.Logger
	now     func() time.Time

	runs metric.Int64Counter
}

// New creates an Orchestrator.
func New(store Store, invoker Invoker, logger *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		invoker: invoker,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	var err error
	if o.runs, err = otel.Meter(instrumentationName).Int64Counter("mccarthy.pipeline.runs",
		metric.WithDescription("Pipeline runs by outcome")); err != nil {
		logger.Warn("failed to create pipeline run counter", "error", err)
	}
	return o
}

// Run executes every segment of the pipeline in order and stops at the first
// failure. On success the final output is written to the pipeline record.
func (o *Orchestrator) Run(ctx context.Context, pipelineID string, req models.RunRequest) (*models.RunResult, error) {
	res, err := o.run(ctx, pipelineID, req)
	o.count(ctx, err)
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, pipelineID string, req models.RunRequest) (*models.RunResult, error) {
	if req.InitialInput == "" {
		return nil, apperr.Validation("initialInput is required")
	}

	p, err := o.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	if req.Owner != "" && p.OwnerID != req.Owner {
		return nil, apperr.NotFound("pipeline %s not found", pipelineID)
	}

	segments, err := o.store.ListSegments(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, apperr.New(apperr.CodeEmptyPipeline, "No segments found for this pipeline")
	}

	runID := uuid.NewString()
	logger := o.logger.With("pipeline_id", p.ID, "run_id", runID)
	logger.Info("pipeline run started", "segments", len(segments))

	initial := NewContext(req.InitialInput, req.InputFiles)
	current := initial
	for _, seg := range segments {
		input := current
		if seg.Source() == models.InputSourceInitial {
			input = initial
		}

		out, err := o.runSegment(ctx, logger, runID, seg, input)
		if err != nil {
			return nil, err
		}
		current = input.Next(out)
	}

	if err := o.store.SaveFinalOutput(ctx, p.ID, current.Text(), current.Files()); err != nil {
		return nil, err
	}
	logger.Info("pipeline run completed")

	return &models.RunResult{
		RunID:       runID,
		OutputText:  current.Text(),
		OutputFiles: current.Files(),
		Status:      models.RunStatusCompleted,
	}, nil
}

func (o *Orchestrator) runSegment(ctx context.Context, logger *logging.Logger, runID string, seg *models.Segment, input InvocationContext) (models.Output, error) {
	now := o.now()
	run := &models.SegmentRun{
		ID:          uuid.NewString(),
		RunID:       runID,
		PipelineID:  seg.PipelineID,
		SegmentID:   seg.ID,
		Order:       seg.Order,
		InputText:   input.Text(),
		InputFiles:  input.Files(),
		OutputFiles: []string{},
		Status:      models.RunStatusRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.store.CreateSegmentRun(ctx, run); err != nil {
		return models.Output{}, err
	}

	out, err := o.invoker.InvokeTool(ctx, models.Invocation{
		ToolID:     seg.ToolID,
		Prompt:     seg.Prompt,
		InputText:  input.Text(),
		InputFiles: input.Files(),
		Model:      seg.Model,
	})
	if err != nil {
		logger.Warn("segment failed", "order", seg.Order, "segment_id", seg.ID, "error", err)
		o.recordFailure(ctx, logger, run, err)
		return models.Output{}, &ChainError{Order: seg.Order, SegmentID: seg.ID, Err: err}
	}

	done := *run
	if err = done.Complete(out, o.now()); err == nil {
		err = o.store.FinishSegmentRun(ctx, &done)
	}
	if err != nil {
		logger.Error("failed to record segment output", "order", seg.Order, "segment_id", seg.ID, "error", err)
		err = fmt.Errorf("failed to record segment output: %w", err)
		o.recordFailure(ctx, logger, run, err)
		return models.Output{}, &ChainError{Order: seg.Order, SegmentID: seg.ID, Err: err}
	}
	logger.Debug("segment completed", "order", seg.Order, "segment_id", seg.ID)
	return out, nil
}

// recordFailure moves run to failed. The write is detached from ctx so the
// ledger is updated even when the caller went away.
func (o *Orchestrator) recordFailure(ctx context.Context, logger *logging.Logger, run *models.SegmentRun, cause error) {
	if err := run.Fail(cause.Error(), o.now()); err != nil {
		return
	}
	if err := o.store.FinishSegmentRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to record segment failure", "segment_id", run.SegmentID, "error", err)
	}
}

func (o *Orchestrator) count(ctx context.Context, err error) {
	if o.runs == nil {
		return
	}
	outcome := "completed"
	if err != nil {
		outcome = string(apperr.CodeOf(err))
		var ce *ChainError
		if errors.As(err, &ce) {
			outcome = "failed"
		}
	}
	o.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
