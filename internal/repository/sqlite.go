package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

var _ Repository = (*SQLiteStore)(nil)

// SQLiteStore is the single-file store used for local development and the
// CLI. List columns hold JSON arrays and timestamps are Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. Use ":memory:" for a throwaway store.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and a
	// single writer avoids SQLITE_BUSY on file databases.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS tools (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		api_key TEXT NOT NULL DEFAULT '',
		api_endpoint TEXT NOT NULL DEFAULT '',
		api_method TEXT NOT NULL DEFAULT 'POST',
		api_headers TEXT,
		request_body_template TEXT,
		response_path TEXT NOT NULL DEFAULT '',
		models TEXT NOT NULL DEFAULT '[]',
		keywords TEXT NOT NULL DEFAULT '[]',
		use_cases TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pipelines (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		final_response TEXT NOT NULL DEFAULT '',
		output_files TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		pipeline_id TEXT NOT NULL REFERENCES pipelines(id),
		name TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL CHECK (position >= 0),
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
		position INTEGER NOT NULL,
		input_text TEXT NOT NULL DEFAULT '',
		input_files TEXT NOT NULL DEFAULT '[]',
		output_text TEXT NOT NULL DEFAULT '',
		output_files TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_segment_runs_pipeline ON segment_runs(pipeline_id, created_at);
	`)
	return err
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

const sqliteToolColumns = `id, title, description, provider, api_key, api_endpoint, api_method,
	api_headers, request_body_template, response_path, models, keywords, use_cases, created_at`

func (s *SQLiteStore) CreateTool(ctx context.Context, t *models.Tool) error {
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tools (`+sqliteToolColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Provider), t.APIKey, t.APIEndpoint, t.Method(),
		nullableText(headers), nullableText(tmpl), t.ResponsePath,
		encodeList(t.Models), encodeList(t.Keywords), encodeList(t.UseCases), t.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert tool: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTool(ctx context.Context, id string) (*models.Tool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteToolColumns+` FROM tools WHERE id = ?`, id)
	t, err := scanSQLiteTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("tool %s not found", id)
	}
	return t, err
}

func (s *SQLiteStore) ListTools(ctx context.Context) ([]*models.Tool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteToolColumns+` FROM tools ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	tools := []*models.Tool{}
	for rows.Next() {
		t, err := scanSQLiteTool(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTool(row rowScanner) (*models.Tool, error) {
	var (
		t                      models.Tool
		provider               string
		headers, tmpl          []byte
		modelList, kw, useCase string
		created                int64
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &provider, &t.APIKey, &t.APIEndpoint, &t.APIMethod,
		&headers, &tmpl, &t.ResponsePath, &modelList, &kw, &useCase, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan tool: %w", err)
	}
	t.Provider = models.Provider(provider)
	t.CreatedAt = time.Unix(0, created).UTC()
	if t.APIHeaders, err = decodeHeaders(headers); err != nil {
		return nil, err
	}
	if t.RequestBodyTemplate, err = decodeTemplate(tmpl); err != nil {
		return nil, err
	}
	if t.Models, err = decodeList(modelList); err != nil {
		return nil, err
	}
	if t.Keywords, err = decodeList(kw); err != nil {
		return nil, err
	}
	if t.UseCases, err = decodeList(useCase); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) CreatePipeline(ctx context.Context, p *models.Pipeline) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipelines (id, owner_id, name, description, final_response, output_files, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.Description, p.FinalResponse, encodeList(p.OutputFiles),
		p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert pipeline: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPipeline(ctx context.Context, id string) (*models.Pipeline, error) {
	var (
		p                models.Pipeline
		files            string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, description, final_response, output_files, created_at, updated_at
		 FROM pipelines WHERE id = ?`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.FinalResponse, &files, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("pipeline %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan pipeline: %w", err)
	}
	if p.OutputFiles, err = decodeList(files); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

func (s *SQLiteStore) SaveFinalOutput(ctx context.Context, id string, text string, files []string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipelines SET final_response = ?, output_files = ?, updated_at = ? WHERE id = ?`,
		text, encodeList(files), time.Now().UTC().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("update pipeline output: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("pipeline %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) CreateSegment(ctx context.Context, seg *models.Segment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO segments (id, pipeline_id, name, position, prompt, tool_id, model, input_source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.ID, seg.PipelineID, seg.Name, seg.Order, seg.Prompt, seg.ToolID, seg.Model, string(seg.Source()),
	)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSegments(ctx context.Context, pipelineID string) ([]*models.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pipeline_id, name, position, prompt, tool_id, model, input_source
		 FROM segments WHERE pipeline_id = ? ORDER BY position`, pipelineID)
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

const sqliteRunColumns = `id, run_id, pipeline_id, segment_id, position, input_text, input_files,
	output_text, output_files, status, error, created_at, updated_at`

func (s *SQLiteStore) CreateSegmentRun(ctx context.Context, r *models.SegmentRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO segment_runs (`+sqliteRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunID, r.PipelineID, r.SegmentID, r.Order, r.InputText, encodeList(r.InputFiles),
		r.OutputText, encodeList(r.OutputFiles), string(r.Status), r.Error,
		r.CreatedAt.UnixNano(), r.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert segment run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FinishSegmentRun(ctx context.Context, r *models.SegmentRun) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE segment_runs SET output_text = ?, output_files = ?, status = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN ('completed', 'failed')`,
		r.OutputText, encodeList(r.OutputFiles), string(r.Status), r.Error, r.UpdatedAt.UnixNano(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update segment run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetSegmentRun(ctx, r.ID); err != nil {
			return err
		}
		return models.ErrRunFinalized
	}
	return nil
}

func (s *SQLiteStore) GetSegmentRun(ctx context.Context, id string) (*models.SegmentRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM segment_runs WHERE id = ?`, id)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("segment run %s not found", id)
	}
	return r, err
}

func (s *SQLiteStore) ListSegmentRuns(ctx context.Context, pipelineID string) ([]*models.SegmentRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM segment_runs WHERE pipeline_id = ?
		 ORDER BY (SELECT MIN(created_at) FROM segment_runs AS r0 WHERE r0.run_id = segment_runs.run_id),
		          run_id, position`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("list segment runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.SegmentRun{}
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanSQLiteRun(row rowScanner) (*models.SegmentRun, error) {
	var (
		r                    models.SegmentRun
		inFiles, outFiles    string
		status               string
		created, updatedNano int64
	)
	err := row.Scan(&r.ID, &r.RunID, &r.PipelineID, &r.SegmentID, &r.Order, &r.InputText, &inFiles,
		&r.OutputText, &outFiles, &status, &r.Error, &created, &updatedNano)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan segment run: %w", err)
	}
	r.Status = models.RunStatus(status)
	r.CreatedAt = time.Unix(0, created).UTC()
	r.UpdatedAt = time.Unix(0, updatedNano).UTC()
	if r.InputFiles, err = decodeList(inFiles); err != nil {
		return nil, err
	}
	if r.OutputFiles, err = decodeList(outFiles); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
