package services

import (
	"context"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// DefaultSystemPrompt is used when no playground prompt is configured.
const DefaultSystemPrompt = "You are a helpful assistant."

// Invoker runs a single tool call.
type Invoker interface {
	InvokeTool(ctx context.Context, inv models.Invocation) (models.Output, error)
}

// ChatMode selects how the playground chooses a tool.
type ChatMode string

const (
	ModeAutomatic ChatMode = "automatic"
	ModeManual    ChatMode = "manual"
)

// ChatRequest is one playground message.
type ChatRequest struct {
	Prompt string   `json:"prompt"`
	Mode   ChatMode `json:"mode"`
	ToolID string   `json:"toolId,omitempty"`
	Model  string   `json:"model,omitempty"`
}

// ChatResponse carries the tool answer. A failed invocation is reported in
// Response as "[API Error: ...]" with Error set to the same message.
type ChatResponse struct {
	Response  string    `json:"response"`
	ModelUsed string    `json:"modelUsed"`
	ToolID    string    `json:"toolId"`
	Selection Selection `json:"selection"`
	Error     string    `json:"error,omitempty"`
}

// PlaygroundService answers free-form prompts with a selected tool.
type PlaygroundService struct {
	selector     *ToolSelector
	invoker      Invoker
	systemPrompt string
	logger       *logging.Logger
}

// NewPlaygroundService creates a PlaygroundService.
func NewPlaygroundService(selector *ToolSelector, invoker Invoker, systemPrompt string, logger *logging.Logger) *PlaygroundService {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &PlaygroundService{selector: selector, invoker: invoker, systemPrompt: systemPrompt, logger: logger}
}

// Chat selects a tool and sends it the prompt. Selection failures are
// returned as errors; invocation failures are inlined in the response.
func (s *PlaygroundService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var (
		tool *models.Tool
		sel  Selection
		err  error
	)
	if req.Mode == ModeManual {
		tool, sel, err = s.selector.SelectManual(ctx, req.ToolID)
	} else {
		tool, sel, err = s.selector.SelectAutomatic(ctx, req.Prompt)
	}
	if err != nil {
		return nil, err
	}

	resp := &ChatResponse{ModelUsed: tool.Title, ToolID: tool.ID, Selection: sel}
	out, err := s.invoker.InvokeTool(ctx, models.Invocation{
		ToolID:     tool.ID,
		Prompt:     s.systemPrompt,
		InputText:  req.Prompt,
		InputFiles: []string{},
		Model:      req.Model,
	})
	if err != nil {
		s.logger.Warn("playground invocation failed", "tool_id", tool.ID, "error", err)
		resp.Error = err.Error()
		resp.Response = "[API Error: " + err.Error() + "]"
		return resp, nil
	}
	resp.Response = out.OutputText
	return resp, nil
}
