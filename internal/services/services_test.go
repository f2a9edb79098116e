package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// MockSimilarity satisfies SimilarityClient.
type MockSimilarity struct {
	mock.Mock
}

func (m *MockSimilarity) Rank(ctx context.Context, query string, items []SimilarityItem) ([]SimilarityScore, error) {
	args := m.Called(ctx, query, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SimilarityScore), args.Error(1)
}

// MockInvoker satisfies Invoker.
type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) InvokeTool(ctx context.Context, inv models.Invocation) (models.Output, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(models.Output), args.Error(1)
}

func seededTools(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateTool(ctx, &models.Tool{
		ID: "writer", Title: "Writer", Description: "Writes prose", APIKey: "k",
		UseCases: []string{"blog posts"}, Keywords: []string{"text"}, CreatedAt: base,
	}))
	require.NoError(t, store.CreateTool(ctx, &models.Tool{
		ID: "painter", Title: "Painter", Description: "Draws images", APIKey: "k",
		Keywords: []string{"image", ""}, CreatedAt: base.Add(time.Minute),
	}))
	return store
}

func TestSelectAutomatic(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		prompt   string
		scores   []SimilarityScore
		err      error
		wantTool string
		reason   SelectionReason
	}{
		{"top score wins", "draw a cat", []SimilarityScore{{ID: "painter", Score: 0.9}, {ID: "writer", Score: 0.1}}, nil, "painter", ReasonSimilarity},
		{"service error", "draw a cat", nil, errors.New("connection refused"), "writer", ReasonServiceError},
		{"no scores", "draw a cat", []SimilarityScore{}, nil, "writer", ReasonNoScores},
		{"unknown id", "draw a cat", []SimilarityScore{{ID: "deleted", Score: 1}}, nil, "writer", ReasonUnknownTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := new(MockSimilarity)
			sim.On("Rank", mock.Anything, tt.prompt, mock.Anything).Return(tt.scores, tt.err).Once()

			selector := NewToolSelector(seededTools(t), sim, logging.Discard())
			tool, sel, err := selector.SelectAutomatic(ctx, "  "+tt.prompt+" ")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTool, tool.ID)
			assert.Equal(t, tt.reason, sel.Reason)
			sim.AssertExpectations(t)
		})
	}
}

func TestSelectAutomaticCandidates(t *testing.T) {
	sim := new(MockSimilarity)
	sim.On("Rank", mock.Anything, "q", []SimilarityItem{
		{ID: "writer", Texts: []string{"Writer", "Writes prose", "blog posts", "text"}},
		{ID: "painter", Texts: []string{"Painter", "Draws images", "image"}},
	}).Return([]SimilarityScore{{ID: "writer", Score: 0.5}}, nil).Once()

	tool, sel, err := NewToolSelector(seededTools(t), sim, logging.Discard()).SelectAutomatic(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "writer", tool.ID)
	assert.InDelta(t, 0.5, sel.Score, 1e-9)
	sim.AssertExpectations(t)
}

func TestSelectAutomaticEdges(t *testing.T) {
	ctx := context.Background()
	sim := new(MockSimilarity)

	tool, sel, err := NewToolSelector(seededTools(t), sim, logging.Discard()).SelectAutomatic(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, "writer", tool.ID)
	assert.Equal(t, ReasonEmptyPrompt, sel.Reason)
	sim.AssertNotCalled(t, "Rank", mock.Anything, mock.Anything, mock.Anything)

	_, _, err = NewToolSelector(repository.NewMemoryStore(), sim, logging.Discard()).SelectAutomatic(ctx, "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSelectManual(t *testing.T) {
	ctx := context.Background()
	selector := NewToolSelector(seededTools(t), new(MockSimilarity), logging.Discard())

	tool, sel, err := selector.SelectManual(ctx, "painter")
	require.NoError(t, err)
	assert.Equal(t, "painter", tool.ID)
	assert.Equal(t, ReasonManual, sel.Reason)

	_, _, err = selector.SelectManual(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = selector.SelectManual(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPlaygroundChat(t *testing.T) {
	ctx := context.Background()
	selector := NewToolSelector(seededTools(t), new(MockSimilarity), logging.Discard())

	inv := new(MockInvoker)
	inv.On("InvokeTool", mock.Anything, models.Invocation{
		ToolID: "painter", Prompt: "Be brief.", InputText: "a cat", InputFiles: []string{}, Model: "m",
	}).Return(models.Output{OutputText: "meow", OutputFiles: []string{}}, nil).Once()

	svc := NewPlaygroundService(selector, inv, "Be brief.", logging.Discard())
	resp, err := svc.Chat(ctx, ChatRequest{Prompt: "a cat", Mode: ModeManual, ToolID: "painter", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "meow", resp.Response)
	assert.Equal(t, "Painter", resp.ModelUsed)
	assert.Empty(t, resp.Error)
	inv.AssertExpectations(t)
}

func TestPlaygroundChatInlinesErrors(t *testing.T) {
	ctx := context.Background()
	selector := NewToolSelector(seededTools(t), new(MockSimilarity), logging.Discard())

	inv := new(MockInvoker)
	inv.On("InvokeTool", mock.Anything, mock.MatchedBy(func(i models.Invocation) bool {
		return i.Prompt == DefaultSystemPrompt
	})).Return(models.Output{}, errors.New("Authentication failed: bad key")).Once()

	svc := NewPlaygroundService(selector, inv, "", logging.Discard())
	resp, err := svc.Chat(ctx, ChatRequest{Prompt: "hi", Mode: ModeManual, ToolID: "writer"})
	require.NoError(t, err)
	assert.Equal(t, "[API Error: Authentication failed: bad key]", resp.Response)
	assert.Equal(t, "Authentication failed: bad key", resp.Error)

	_, err = svc.Chat(ctx, ChatRequest{Prompt: "hi", Mode: ModeManual, ToolID: "nope"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHTTPSimilarityClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/similarity", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Query string           `json:"query"`
			Items []SimilarityItem `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "q", body.Query)
		assert.Len(t, body.Items, 1)
		_, _ = io.WriteString(w, `{"scores":[{"id":"a","score":0.75}]}`)
	}))
	defer srv.Close()

	c := NewHTTPSimilarityClient(SimilarityOptions{URL: srv.URL, Timeout: time.Second})
	scores, err := c.Rank(context.Background(), "q", []SimilarityItem{{ID: "a", Texts: []string{"x"}}})
	require.NoError(t, err)
	assert.Equal(t, []SimilarityScore{{ID: "a", Score: 0.75}}, scores)
}

func TestHTTPSimilarityClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPSimilarityClient(SimilarityOptions{URL: srv.URL})
	_, err := c.Rank(context.Background(), "q", nil)
	assert.ErrorContains(t, err, "status code 503")
}

func TestHTTPSimilarityClientUsesClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/similarity", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"scores":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPSimilarityClient(SimilarityOptions{
		URL: srv.URL, TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "secret",
	})
	scores, err := c.Rank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
