package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

var _ Repository = (*MemoryStore)(nil)

// MemoryStore keeps everything in process memory. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	tools     map[string]*models.Tool
	toolOrder []string
	pipelines map[string]*models.Pipeline
	segments  map[string][]*models.Segment
	runs      map[string]*models.SegmentRun
	runOrder  []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tools:     make(map[string]*models.Tool),
		pipelines: make(map[string]*models.Pipeline),
		segments:  make(map[string][]*models.Segment),
		runs:      make(map[string]*models.SegmentRun),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetTool(_ context.Context, id string) (*models.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[id]
	if !ok {
		return nil, apperr.NotFound("tool %s not found", id)
	}
	return copyTool(t), nil
}

func (s *MemoryStore) ListTools(context.Context) ([]*models.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tool, 0, len(s.toolOrder))
	for _, id := range s.toolOrder {
		out = append(out, copyTool(s.tools[id]))
	}
	return out, nil
}

func (s *MemoryStore) CreateTool(_ context.Context, tool *models.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[tool.ID]; exists {
		return apperr.Validation("tool %s already exists", tool.ID)
	}
	if tool.CreatedAt.IsZero() {
		tool.CreatedAt = time.Now().UTC()
	}
	s.tools[tool.ID] = copyTool(tool)
	s.toolOrder = append(s.toolOrder, tool.ID)
	return nil
}

func (s *MemoryStore) GetPipeline(_ context.Context, id string) (*models.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, apperr.NotFound("pipeline %s not found", id)
	}
	cp := *p
	cp.OutputFiles = cloneStrings(p.OutputFiles)
	return &cp, nil
}

func (s *MemoryStore) CreatePipeline(_ context.Context, p *models.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pipelines[p.ID]; exists {
		return apperr.Validation("pipeline %s already exists", p.ID)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	cp.OutputFiles = cloneStrings(p.OutputFiles)
	s.pipelines[p.ID] = &cp
	return nil
}

func (s *MemoryStore) SaveFinalOutput(_ context.Context, id string, text string, files []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[id]
	if !ok {
		return apperr.NotFound("pipeline %s not found", id)
	}
	p.FinalResponse = text
	p.OutputFiles = cloneStrings(files)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListSegments(_ context.Context, pipelineID string) ([]*models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segs := s.segments[pipelineID]
	out := make([]*models.Segment, len(segs))
	for i, seg := range segs {
		cp := *seg
		out[i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *MemoryStore) CreateSegment(_ context.Context, seg *models.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.segments[seg.PipelineID] {
		if existing.Order == seg.Order {
			return apperr.Validation("pipeline %s already has a segment at order %d", seg.PipelineID, seg.Order)
		}
	}
	cp := *seg
	s.segments[seg.PipelineID] = append(s.segments[seg.PipelineID], &cp)
	return nil
}

func (s *MemoryStore) CreateSegmentRun(_ context.Context, run *models.SegmentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return apperr.Validation("segment run %s already exists", run.ID)
	}
	s.runs[run.ID] = copyRun(run)
	s.runOrder = append(s.runOrder, run.ID)
	return nil
}

func (s *MemoryStore) FinishSegmentRun(_ context.Context, run *models.SegmentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[run.ID]
	if !ok {
		return apperr.NotFound("segment run %s not found", run.ID)
	}
	if stored.Status.Terminal() {
		return models.ErrRunFinalized
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetSegmentRun(_ context.Context, id string) (*models.SegmentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, apperr.NotFound("segment run %s not found", id)
	}
	return copyRun(r), nil
}

func (s *MemoryStore) ListSegmentRuns(_ context.Context, pipelineID string) ([]*models.SegmentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.SegmentRun{}
	first := map[string]time.Time{}
	for _, id := range s.runOrder {
		r := s.runs[id]
		if r.PipelineID != pipelineID {
			continue
		}
		if t, ok := first[r.RunID]; !ok || r.CreatedAt.Before(t) {
			first[r.RunID] = r.CreatedAt
		}
		out = append(out, copyRun(r))
	}

	// Runs of one pipeline may interleave; group them like the SQL stores do.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if fa, fb := first[a.RunID], first[b.RunID]; !fa.Equal(fb) {
			return fa.Before(fb)
		}
		if a.RunID != b.RunID {
			return a.RunID < b.RunID
		}
		return a.Order < b.Order
	})
	return out, nil
}

func copyTool(t *models.Tool) *models.Tool {
	cp := *t
	cp.Models = cloneStrings(t.Models)
	cp.Keywords = cloneStrings(t.Keywords)
	cp.UseCases = cloneStrings(t.UseCases)
	if t.APIHeaders != nil {
		cp.APIHeaders = make(map[string]string, len(t.APIHeaders))
		for k, v := range t.APIHeaders {
			cp.APIHeaders[k] = v
		}
	}
	return &cp
}

func copyRun(r *models.SegmentRun) *models.SegmentRun {
	cp := *r
	cp.InputFiles = cloneStrings(r.InputFiles)
	cp.OutputFiles = cloneStrings(r.OutputFiles)
	return &cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
