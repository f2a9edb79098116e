package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the operations of openapi.yaml.
type ServerInterface interface {
	// (GET /health)
	GetHealth(ctx echo.Context) error
	// (GET /tools)
	ListTools(ctx echo.Context) error
	// (POST /tools/{toolId}/test)
	TestTool(ctx echo.Context, toolID string) error
	// (POST /pipelines/{pipelineId}/run)
	RunPipeline(ctx echo.Context, pipelineID string) error
	// (GET /pipelines/{pipelineId}/runs)
	ListPipelineRuns(ctx echo.Context, pipelineID string) error
	// (GET /segment-runs/{segmentRunId})
	GetSegmentRun(ctx echo.Context, segmentRunID string) error
	// (POST /playground/chat)
	PlaygroundChat(ctx echo.Context) error
}

// ServerInterfaceWrapper binds path parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetHealth(ctx echo.Context) error {
	return w.Handler.GetHealth(ctx)
}

func (w *ServerInterfaceWrapper) ListTools(ctx echo.Context) error {
	return w.Handler.ListTools(ctx)
}

func (w *ServerInterfaceWrapper) TestTool(ctx echo.Context) error {
	toolID, err := bindPathParam(ctx, "toolId")
	if err != nil {
		return err
	}
	return w.Handler.TestTool(ctx, toolID)
}

func (w *ServerInterfaceWrapper) RunPipeline(ctx echo.Context) error {
	pipelineID, err := bindPathParam(ctx, "pipelineId")
	if err != nil {
		return err
	}
	return w.Handler.RunPipeline(ctx, pipelineID)
}

func (w *ServerInterfaceWrapper) ListPipelineRuns(ctx echo.Context) error {
	pipelineID, err := bindPathParam(ctx, "pipelineId")
	if err != nil {
		return err
	}
	return w.Handler.ListPipelineRuns(ctx, pipelineID)
}

func (w *ServerInterfaceWrapper) GetSegmentRun(ctx echo.Context) error {
	segmentRunID, err := bindPathParam(ctx, "segmentRunId")
	if err != nil {
		return err
	}
	return w.Handler.GetSegmentRun(ctx, segmentRunID)
}

func (w *ServerInterfaceWrapper) PlaygroundChat(ctx echo.Context) error {
	return w.Handler.PlaygroundChat(ctx)
}

func bindPathParam(ctx echo.Context, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return value, nil
}

// EchoRouter is the part of *echo.Echo and *echo.Group used for routing.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers mounts every operation on router.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	w := &ServerInterfaceWrapper{Handler: si}

	router.GET("/health", w.GetHealth)
	router.GET("/tools", w.ListTools)
	router.POST("/tools/:toolId/test", w.TestTool)
	router.POST("/pipelines/:pipelineId/run", w.RunPipeline)
	router.GET("/pipelines/:pipelineId/runs", w.ListPipelineRuns)
	router.GET("/segment-runs/:segmentRunId", w.GetSegmentRun)
	router.POST("/playground/chat", w.PlaygroundChat)
}
