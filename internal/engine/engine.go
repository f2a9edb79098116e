// Package engine runs a single tool invocation: it loads the tool, checks its
// configuration, picks an adapter and classifies whatever goes wrong.
package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/provider"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

const instrumentationName = "github.com/jyoshithareddy08/McCarthy2.0/internal/engine"

// ToolStore loads tool records including their credentials.
type ToolStore interface {
	GetTool(ctx context.Context, id string) (*models.Tool, error)
}

// Engine invokes tools through the provider adapters.
type Engine struct {
	tools    ToolStore
	adapters *provider.Set
	logger   *logging.Logger
	timeout  time.Duration

	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each provider call. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an Engine.
func New(tools ToolStore, adapters *provider.Set, logger *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		tools:    tools,
		adapters: adapters,
		logger:   logger,
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(e)
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if e.invocations, err = meter.Int64Counter("mccarthy.tool.invocations",
		metric.WithDescription("Tool invocations by provider and outcome")); err != nil {
		logger.Warn("failed to create invocation counter", "error", err)
	}
	if e.duration, err = meter.Float64Histogram("mccarthy.tool.invocation.duration",
		metric.WithDescription("Tool invocation latency"), metric.WithUnit("s")); err != nil {
		logger.Warn("failed to create invocation histogram", "error", err)
	}
	return e
}

// InvokeTool runs one tool call. Every error it returns is an
// *InvocationError.
func (e *Engine) InvokeTool(ctx context.Context, inv models.Invocation) (models.Output, error) {
	start := time.Now()
	out, res, err := e.invoke(ctx, inv)
	e.record(ctx, res, err, time.Since(start))
	if err != nil {
		return models.Output{}, err
	}
	return out, nil
}

func (e *Engine) invoke(ctx context.Context, inv models.Invocation) (models.Output, provider.Resolution, error) {
	var res provider.Resolution

	tool, err := e.tools.GetTool(ctx, inv.ToolID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			err = apperr.Wrap(apperr.CodeInternal, err, "failed to load tool %s: %v", inv.ToolID, err)
		}
		return models.Output{}, res, e.fail(inv.ToolID, err)
	}

	if tool.APIKey == "" {
		return models.Output{}, res, &InvocationError{
			Class:  ClassAuthentication,
			ToolID: tool.ID,
			Err:    apperr.Configuration("API key not found for tool: %s", tool.Title),
		}
	}

	if inv.Model != "" && len(tool.Models) > 0 && !tool.HasModel(inv.Model) {
		return models.Output{}, res, e.fail(tool.ID, apperr.ModelNotAvailable(inv.Model, tool.Title))
	}

	res = provider.Resolve(tool)
	if res.Sniffed {
		e.logger.Warn("provider inferred from tool metadata",
			"tool_id", tool.ID, "title", tool.Title, "provider", res.Provider, "kind", res.Kind)
	} else {
		e.logger.Debug("provider resolved", "tool_id", tool.ID, "provider", res.Provider, "kind", res.Kind)
	}

	if res.Kind == provider.KindOpenAITranscription {
		return models.Output{}, res, e.fail(tool.ID,
			apperr.Configuration("transcription tools are not supported: %s", tool.Title))
	}

	if res.Kind == provider.KindCustom && tool.APIEndpoint == "" {
		return models.Output{}, res, e.fail(tool.ID,
			apperr.Configuration("custom tool %s has no API endpoint configured", tool.Title))
	}

	adapter, ok := e.adapters.Adapter(res.Kind)
	if !ok {
		return models.Output{}, res, e.fail(tool.ID, apperr.Configuration("no adapter registered for %s", res.Kind))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := adapter.Invoke(callCtx, tool, inv.Prompt, inv.Input(), inv.Model)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = apperr.Wrap(apperr.CodeNetwork, err, "request timed out after %s", e.timeout)
		}
		return models.Output{}, res, e.fail(tool.ID, err)
	}
	return out.Normalize(), res, nil
}

func (e *Engine) fail(toolID string, err error) *InvocationError {
	return &InvocationError{Class: classify(err), ToolID: toolID, Err: err}
}

func (e *Engine) record(ctx context.Context, res provider.Resolution, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		var ie *InvocationError
		if errors.As(err, &ie) {
			outcome = string(ie.Class)
		} else {
			outcome = "error"
		}
		e.logger.Error("tool invocation failed", "provider", res.Provider, "kind", res.Kind, "error", err)
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", string(res.Provider)),
		attribute.String("kind", string(res.Kind)),
		attribute.String("outcome", outcome),
	)
	if e.invocations != nil {
		e.invocations.Add(ctx, 1, attrs)
	}
	if e.duration != nil {
		e.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
