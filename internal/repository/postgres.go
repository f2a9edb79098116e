package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

var _ Repository = (*PostgresStore)(nil)

// PostgresStore is the PostgreSQL implementation of Repository.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore on an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables if they do not exist. Request templates use
// json rather than jsonb so their key order is kept.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS tools (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		api_key TEXT NOT NULL DEFAULT '',
		api_endpoint TEXT NOT NULL DEFAULT '',
		api_method TEXT NOT NULL DEFAULT 'POST',
		api_headers JSON,
		request_body_template JSON,
		response_path TEXT NOT NULL DEFAULT '',
		models TEXT[] NOT NULL DEFAULT '{}',
		keywords TEXT[] NOT NULL DEFAULT '{}',
		use_cases TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS pipelines (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		final_response TEXT NOT NULL DEFAULT '',
		output_files TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		pipeline_id TEXT NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
		name TEXT NOT NULL DEFAULT '',
		position INT NOT NULL CHECK (position >= 0),
		prompt TEXT NOT NULL DEFAULT '',
		tool_id TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		input_source TEXT NOT NULL DEFAULT 'previous',
		UNIQUE (pipeline_id, position)
	);
	CREATE TABLE IF NOT EXISTS segment_runs (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		pipeline_id TEXT NOT NULL,
		segment_id TEXT NOT NULL,
		position INT NOT NULL,
		input_text TEXT NOT NULL DEFAULT '',
		input_files TEXT[] NOT NULL DEFAULT '{}',
		output_text TEXT NOT NULL DEFAULT '',
		output_files TEXT[] NOT NULL DEFAULT '{}',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_segment_runs_pipeline ON segment_runs(pipeline_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

const pgToolColumns = `id, title, description, provider, api_key, api_endpoint, api_method,
	api_headers, request_body_template, response_path, models, keywords, use_cases, created_at`

func (s *PostgresStore) CreateTool(ctx context.Context, t *models.Tool) error {
	headers, err := encodeHeaders(t.APIHeaders)
	if err != nil {
		return err
	}
	tmpl, err := encodeTemplate(t.RequestBodyTemplate)
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO tools (`+pgToolColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.Title, t.Description, string(t.Provider), t.APIKey, t.APIEndpoint, t.Method(),
		nullableText(headers), nullableText(tmpl), t.ResponsePath,
		nonNil(t.Models), nonNil(t.Keywords), nonNil(t.UseCases), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tool: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTool(ctx context.Context, id string) (*models.Tool, error) {
	t, err := scanPgTool(s.db.QueryRow(ctx, `SELECT `+pgToolColumns+` FROM tools WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("tool %s not found", id)
	}
	return t, err
}

func (s *PostgresStore) ListTools(ctx context.Context) ([]*models.Tool, error) {
	rows, err := s.db.Query(ctx, `SELECT `+pgToolColumns+` FROM tools ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	tools := []*models.Tool{}
	for rows.Next() {
		t, err := scanPgTool(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

func scanPgTool(row pgx.Row) (*models.Tool, error) {
	var (
		t             models.Tool
		provider      string
		headers, tmpl []byte
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &provider, &t.APIKey, &t.APIEndpoint, &t.APIMethod,
		&headers, &tmpl, &t.ResponsePath, &t.Models, &t.Keywords, &t.UseCases, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan tool: %w", err)
	}
	t.Provider = models.Provider(provider)
	t.CreatedAt = t.CreatedAt.UTC()
	if t.APIHeaders, err = decodeHeaders(headers); err != nil {
		return nil, err
	}
	if t.RequestBodyTemplate, err = decodeTemplate(tmpl); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) CreatePipeline(ctx context.Context, p *models.Pipeline) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.Exec(ctx,
		`INSERT INTO pipelines (id, owner_id, name, description, final_response, output_files, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OwnerID, p.Name, p.Description, p.FinalResponse, nonNil(p.OutputFiles), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPipeline(ctx context.Context, id string) (*models.Pipeline, error) {
	var p models.Pipeline
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, description, final_response, output_files, created_at, updated_at
		 FROM pipelines WHERE id = $1`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.FinalResponse, &p.OutputFiles, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("pipeline %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan pipeline: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *PostgresStore) SaveFinalOutput(ctx context.Context, id string, text string, files []string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE pipelines SET final_response = $1, output_files = $2, updated_at = now() WHERE id = $3`,
		text, nonNil(files), id,
	)
	if err != nil {
		return fmt.Errorf("update pipeline output: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pipeline %s not found", id)
	}
	return nil
}

func (s *PostgresStore) CreateSegment(ctx context.Context, seg *models.Segment) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO segments (id, pipeline_id, name, position, prompt, tool_id, model, input_source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		seg.ID, seg.PipelineID, seg.Name, seg.Order, seg.Prompt, seg.ToolID, seg.Model, string(seg.Source()),
	)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSegments(ctx context.Context, pipelineID string) ([]*models.Segment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, pipeline_id, name, position, prompt, tool_id, model, input_source
		 FROM segments WHERE pipeline_id = $1 ORDER BY position`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segs := []*models.Segment{}
	for rows.Next() {
		var seg models.Segment
		var source string
		if err := rows.Scan(&seg.ID, &seg.PipelineID, &seg.Name, &seg.Order, &seg.Prompt, &seg.ToolID, &seg.Model, &source); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.InputSource = models.InputSource(source)
		segs = append(segs, &seg)
	}
	return segs, rows.Err()
}

const pgRunColumns = `id, run_id, pipeline_id, segment_id, position, input_text, input_files,
	output_text, output_files, status, error, created_at, updated_at`

func (s *PostgresStore) CreateSegmentRun(ctx context.Context, r *models.SegmentRun) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO segment_runs (`+pgRunColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.RunID, r.PipelineID, r.SegmentID, r.Order, r.InputText, nonNil(r.InputFiles),
		r.OutputText, nonNil(r.OutputFiles), string(r.Status), r.Error, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert segment run: %w", err)
	}
	return nil
}

func (s *PostgresStore) FinishSegmentRun(ctx context.Context, r *models.SegmentRun) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE segment_runs SET output_text = $1, output_files = $2, status = $3, error = $4, updated_at = $5
		 WHERE id = $6 AND status NOT IN ('completed', 'failed')`,
		r.OutputText, nonNil(r.OutputFiles), string(r.Status), r.Error, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update segment run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSegmentRun(ctx, r.ID); err != nil {
			return err
		}
		return models.ErrRunFinalized
	}
	return nil
}

func (s *PostgresStore) GetSegmentRun(ctx context.Context, id string) (*models.SegmentRun, error) {
	r, err := scanPgRun(s.db.QueryRow(ctx, `SELECT `+pgRunColumns+` FROM segment_runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("segment run %s not found", id)
	}
	return r, err
}

func (s *PostgresStore) ListSegmentRuns(ctx context.Context, pipelineID string) ([]*models.SegmentRun, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgRunColumns+` FROM segment_runs WHERE pipeline_id = $1
		 ORDER BY MIN(created_at) OVER (PARTITION BY run_id), run_id, position`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("list segment runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.SegmentRun{}
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanPgRun(row pgx.Row) (*models.SegmentRun, error) {
	var (
		r      models.SegmentRun
		status string
	)
	err := row.Scan(&r.ID, &r.RunID, &r.PipelineID, &r.SegmentID, &r.Order, &r.InputText, &r.InputFiles,
		&r.OutputText, &r.OutputFiles, &status, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan segment run: %w", err)
	}
	r.Status = models.RunStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
