package repository

import (
	"context"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// ToolStore holds tool definitions. GetTool returns the credential too;
// callers must not pass the record outward without Tool.Public.
type ToolStore interface {
	// GetTool retrieves a tool by its ID.
	GetTool(ctx context.Context, id string) (*models.Tool, error)
	// ListTools returns every tool, oldest first.
	ListTools(ctx context.Context) ([]*models.Tool, error)
	// CreateTool stores a new tool.
	CreateTool(ctx context.Context, tool *models.Tool) error
}

// PipelineStore holds pipelines.
type PipelineStore interface {
	// GetPipeline retrieves a pipeline by its ID.
	GetPipeline(ctx context.Context, id string) (*models.Pipeline, error)
	// CreatePipeline stores a new pipeline.
	CreatePipeline(ctx context.Context, p *models.Pipeline) error
	// SaveFinalOutput records the output of a successful run.
	SaveFinalOutput(ctx context.Context, id string, text string, files []string) error
}

// SegmentStore holds pipeline segments.
type SegmentStore interface {
	// ListSegments returns the segments of a pipeline sorted by order.
	ListSegments(ctx context.Context, pipelineID string) ([]*models.Segment, error)
	// CreateSegment stores a new segment. Order must be unique per pipeline.
	CreateSegment(ctx context.Context, s *models.Segment) error
}

// RunLedger is the append-mostly record of segment executions.
type RunLedger interface {
	// CreateSegmentRun stores a new run record.
	CreateSegmentRun(ctx context.Context, run *models.SegmentRun) error
	// FinishSegmentRun writes the terminal state of a run. It fails with
	// models.ErrRunFinalized when the stored run is already terminal.
	FinishSegmentRun(ctx context.Context, run *models.SegmentRun) error
	// GetSegmentRun retrieves a run by its ID.
	GetSegmentRun(ctx context.Context, id string) (*models.SegmentRun, error)
	// ListSegmentRuns returns the runs of a pipeline, oldest run first and by
	// order within a run.
	ListSegmentRuns(ctx context.Context, pipelineID string) ([]*models.SegmentRun, error)
}

// Repository combines every store behind one connection.
type Repository interface {
	ToolStore
	PipelineStore
	SegmentStore
	RunLedger
	Ping(ctx context.Context) error
	Close() error
}
