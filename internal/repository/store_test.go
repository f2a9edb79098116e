package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/template"
)

// testStore exercises the behaviour every Repository implementation shares.
func testStore(t *testing.T, store Repository) {
	ctx := context.Background()

	t.Run("tools keep template order and headers", func(t *testing.T) {
		root, err := template.Parse([]byte(`{"z":"{{prompt}}","a":{"m":1,"b":[true,null]}}`))
		require.NoError(t, err)
		tool := &models.Tool{
			ID:                  uuid.NewString(),
			Title:               "Summarizer",
			Provider:            models.ProviderCustom,
			APIKey:              "secret",
			APIEndpoint:         "https://example.test/run",
			APIHeaders:          map[string]string{"X-Api-Key": "{{apiKey}}"},
			RequestBodyTemplate: template.New(root),
			ResponsePath:        "data.text",
			Models:              []string{"m1", "m2"},
			Keywords:            []string{"summary"},
		}
		require.NoError(t, store.CreateTool(ctx, tool))

		got, err := store.GetTool(ctx, tool.ID)
		require.NoError(t, err)
		assert.Equal(t, "secret", got.APIKey)
		assert.Equal(t, "POST", got.APIMethod)
		assert.Equal(t, tool.APIHeaders, got.APIHeaders)
		assert.Equal(t, []string{"m1", "m2"}, got.Models)
		assert.Empty(t, got.UseCases)

		b, err := got.RequestBodyTemplate.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `{"z":"{{prompt}}","a":{"m":1,"b":[true,null]}}`, string(b))

		list, err := store.ListTools(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})

	t.Run("missing records are not found", func(t *testing.T) {
		_, err := store.GetTool(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = store.GetPipeline(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = store.GetSegmentRun(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, store.SaveFinalOutput(ctx, "nope", "x", nil), apperr.ErrNotFound)
	})

	t.Run("segments come back sorted by order", func(t *testing.T) {
		p := &models.Pipeline{ID: uuid.NewString(), OwnerID: "alice", Name: "chain"}
		require.NoError(t, store.CreatePipeline(ctx, p))
		for _, order := range []int{2, 0, 1} {
			require.NoError(t, store.CreateSegment(ctx, &models.Segment{
				ID: uuid.NewString(), PipelineID: p.ID, Name: fmt.Sprintf("s%d", order), Order: order, ToolID: "t",
			}))
		}

		segs, err := store.ListSegments(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, segs, 3)
		for i, seg := range segs {
			assert.Equal(t, i, seg.Order)
			assert.Equal(t, models.InputSourcePrevious, seg.InputSource)
		}

		require.NoError(t, store.SaveFinalOutput(ctx, p.ID, "final", []string{"a.png"}))
		got, err := store.GetPipeline(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.FinalResponse)
		assert.Equal(t, []string{"a.png"}, got.OutputFiles)
		assert.Equal(t, "alice", got.OwnerID)
	})

	t.Run("terminal runs cannot change", func(t *testing.T) {
		pipelineID := uuid.NewString()
		now := time.Now().UTC()
		run := &models.SegmentRun{
			ID: uuid.NewString(), RunID: uuid.NewString(), PipelineID: pipelineID, SegmentID: "s0",
			InputText: "in", InputFiles: []string{}, OutputFiles: []string{},
			Status: models.RunStatusRunning, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, store.CreateSegmentRun(ctx, run))

		require.NoError(t, run.Complete(models.Output{OutputText: "out", OutputFiles: []string{"f"}}, now))
		require.NoError(t, store.FinishSegmentRun(ctx, run))

		got, err := store.GetSegmentRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCompleted, got.Status)
		assert.Equal(t, "out", got.OutputText)
		assert.Equal(t, []string{"f"}, got.OutputFiles)

		again := *got
		again.Status = models.RunStatusFailed
		again.Error = "late"
		assert.ErrorIs(t, store.FinishSegmentRun(ctx, &again), models.ErrRunFinalized)

		missing := *run
		missing.ID = uuid.NewString()
		assert.ErrorIs(t, store.FinishSegmentRun(ctx, &missing), apperr.ErrNotFound)
	})

	t.Run("runs list oldest run first", func(t *testing.T) {
		pipelineID := uuid.NewString()
		base := time.Now().UTC().Add(-time.Hour)
		first, second := "run-a-"+uuid.NewString(), "run-b-"+uuid.NewString()
		for i, r := range []struct {
			runID string
			order int
			at    time.Duration
		}{
			{first, 0, 0}, {first, 1, time.Second}, {second, 0, time.Minute},
		} {
			at := base.Add(r.at)
			require.NoError(t, store.CreateSegmentRun(ctx, &models.SegmentRun{
				ID: fmt.Sprintf("%s-%d", pipelineID, i), RunID: r.runID, PipelineID: pipelineID,
				SegmentID: fmt.Sprintf("s%d", r.order), Order: r.order, Status: models.RunStatusPending,
				CreatedAt: at, UpdatedAt: at,
			}))
		}

		runs, err := store.ListSegmentRuns(ctx, pipelineID)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, []string{first, first, second}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})
		assert.Equal(t, []int{0, 1, 0}, []int{runs[0].Order, runs[1].Order, runs[2].Order})

		none, err := store.ListSegmentRuns(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("interleaved runs stay grouped", func(t *testing.T) {
		pipelineID := uuid.NewString()
		base := time.Now().UTC().Add(-time.Hour)
		runA, runB := "run-a-"+uuid.NewString(), "run-b-"+uuid.NewString()
		for i, r := range []struct {
			id    string
			runID string
			order int
		}{
			{"a0", runA, 0}, {"b0", runB, 0}, {"a1", runA, 1}, {"b1", runB, 1},
		} {
			at := base.Add(time.Duration(i) * time.Second)
			require.NoError(t, store.CreateSegmentRun(ctx, &models.SegmentRun{
				ID: pipelineID + "-" + r.id, RunID: r.runID, PipelineID: pipelineID,
				SegmentID: fmt.Sprintf("s%d", r.order), Order: r.order, Status: models.RunStatusRunning,
				CreatedAt: at, UpdatedAt: at,
			}))
		}

		runs, err := store.ListSegmentRuns(ctx, pipelineID)
		require.NoError(t, err)
		require.Len(t, runs, 4)
		ids := make([]string, len(runs))
		for i, r := range runs {
			ids[i] = strings.TrimPrefix(r.ID, pipelineID+"-")
		}
		assert.Equal(t, []string{"a0", "a1", "b0", "b1"}, ids)
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreRejectsDuplicateOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreatePipeline(ctx, &models.Pipeline{ID: "p", Name: "p"}))
	require.NoError(t, store.CreateSegment(ctx, &models.Segment{ID: "a", PipelineID: "p", Order: 0}))

	err := store.CreateSegment(ctx, &models.Segment{ID: "b", PipelineID: "p", Order: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tool := &models.Tool{ID: "t", Title: "T", Models: []string{"a"}}
	require.NoError(t, store.CreateTool(ctx, tool))

	tool.Models[0] = "changed"
	got, err := store.GetTool(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Models)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	testStore(t, store)
}

func TestSQLiteStoreFile(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/ledger.db"

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.CreatePipeline(ctx, &models.Pipeline{ID: "p", Name: "kept"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	p, err := reopened.GetPipeline(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "kept", p.Name)
}
