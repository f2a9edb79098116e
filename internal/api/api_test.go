package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/auth"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/engine"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/pipeline"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/provider"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/services"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// upperService is a custom tool that upper-cases its input.
func upperService(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": strings.ToUpper(body.Input)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type noSimilarity struct{}

func (noSimilarity) Rank(context.Context, string, []services.SimilarityItem) ([]services.SimilarityScore, error) {
	return nil, nil
}

func seed(t *testing.T, store *repository.MemoryStore, endpoint string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateTool(ctx, &models.Tool{
		ID: "upper", Title: "Upper", Provider: models.ProviderCustom, APIKey: "secret-key", APIEndpoint: endpoint,
	}))
	require.NoError(t, store.CreateTool(ctx, &models.Tool{
		ID: "nokey", Title: "NoKey", Provider: models.ProviderCustom, APIEndpoint: endpoint,
	}))

	pipelines := map[string][]string{
		"p1":     {"upper", "upper"},
		"pfail":  {"upper", "nokey", "upper"},
		"pempty": nil,
	}
	for id, tools := range pipelines {
		require.NoError(t, store.CreatePipeline(ctx, &models.Pipeline{ID: id, OwnerID: "alice", Name: id}))
		for i, tool := range tools {
			require.NoError(t, store.CreateSegment(ctx, &models.Segment{
				ID: id + "-" + tool + string(rune('a'+i)), PipelineID: id, Order: i, ToolID: tool,
			}))
		}
	}
}

func newTestServer(t *testing.T, mw ...echo.MiddlewareFunc) (*echo.Echo, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	seed(t, store, upperService(t).URL)

	logger := logging.Discard()
	eng := engine.New(store, provider.NewSet(provider.Options{HTTPClient: http.DefaultClient}), logger)
	runner := pipeline.New(store, eng, logger)
	playground := services.NewPlaygroundService(
		services.NewToolSelector(store, noSimilarity{}, logger), eng, "", logger)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger)
	g := e.Group("/api/v1", mw...)
	RegisterHandlers(g, NewServer(store, eng, runner, playground, logger))
	return e, store
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestListToolsHidesSecrets(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/api/v1/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, rec.Body.String(), "secret-key")
	assert.NotContains(t, rec.Body.String(), "apiEndpoint")
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
}

func TestTestTool(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/tools/upper/test", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "HELLO, PLEASE RESPOND.", body["result"].(map[string]interface{})["outputText"])
	assert.Equal(t, "Upper", body["tool"].(map[string]interface{})["title"])

	rec = do(e, http.MethodPost, "/api/v1/tools/upper/test", `{"inputText":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABC", decode(t, rec)["result"].(map[string]interface{})["outputText"])
}

func TestTestToolFailures(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/tools/missing/test", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])

	rec = do(e, http.MethodPost, "/api/v1/tools/nokey/test", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Tool execution failed", body["error"])
	assert.Equal(t, "Authentication failed: API key not found for tool: NoKey", body["message"])
}

func TestRunPipeline(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/pipelines/p1/run", `{"initialInput":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "HI", body["outputText"])
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, []interface{}{}, body["outputFiles"])
	assert.NotEmpty(t, body["runId"])

	rec = do(e, http.MethodGet, "/api/v1/pipelines/p1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.EqualValues(t, 2, list["count"])

	first := list["runs"].([]interface{})[0].(map[string]interface{})
	rec = do(e, http.MethodGet, "/api/v1/segment-runs/"+first["id"].(string), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = do(e, http.MethodGet, "/api/v1/segment-runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunPipelineErrors(t *testing.T) {
	e, store := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/pipelines/p1/run", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/pipelines/missing/run", `{"initialInput":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/pipelines/pempty/run", `{"initialInput":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No segments found for this pipeline", decode(t, rec)["detail"])

	rec = do(e, http.MethodPost, "/api/v1/pipelines/pfail/run", `{"initialInput":"x"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Pipeline execution failed", body["error"])
	assert.EqualValues(t, 1, body["order"])
	assert.Equal(t, "Pipeline execution failed at segment 1: Authentication failed: API key not found for tool: NoKey", body["message"])

	runs, err := store.ListSegmentRuns(context.Background(), "pfail")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, models.RunStatusFailed, runs[1].Status)
}

func TestRunPipelineChecksOwner(t *testing.T) {
	asMallory := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(auth.WithUser(c.Request().Context(), "mallory")))
			return next(c)
		}
	}
	e, _ := newTestServer(t, asMallory)

	rec := do(e, http.MethodPost, "/api/v1/pipelines/p1/run", `{"initialInput":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/pipelines/p1/runs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaygroundChat(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/playground/chat", `{"prompt":"shout this","mode":"manual","toolId":"upper"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "SHOUT THIS", body["response"])
	assert.Equal(t, "Upper", body["modelUsed"])

	// No similarity scores: the first tool is used.
	rec = do(e, http.MethodPost, "/api/v1/playground/chat", `{"prompt":"anything"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "upper", body["toolId"])
	assert.Equal(t, "fallback_no_scores", body["selection"].(map[string]interface{})["reason"])

	rec = do(e, http.MethodPost, "/api/v1/playground/chat", `{"prompt":"x","mode":"manual","toolId":"nokey"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[API Error: Authentication failed: API key not found for tool: NoKey]", decode(t, rec)["response"])

	rec = do(e, http.MethodPost, "/api/v1/playground/chat", `{"prompt":"x","mode":"weird"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpecAndDocs(t *testing.T) {
	rec := httptest.NewRecorder()
	SpecHandler("https://issuer.example/")(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Contains(t, rec.Body.String(), "https://issuer.example/.well-known/openid-configuration")
	assert.NotContains(t, rec.Body.String(), "{issuer}")

	rec = httptest.NewRecorder()
	SwaggerHandler("client-1")(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Contains(t, rec.Body.String(), `clientId: "client-1"`)
	assert.Contains(t, rec.Body.String(), "pipelines:run")
}
