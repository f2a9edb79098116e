package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

const (
	defaultTestPrompt = "You are a helpful assistant."
	defaultTestInput  = "Hello, please respond."
)

// ToolList is the body of GET /tools.
type ToolList struct {
	Count int                 `json:"count"`
	Tools []models.PublicTool `json:"tools"`
}

// ListTools returns every tool without credentials or endpoints
// (GET /api/v1/tools)
func (s *Server) ListTools(c echo.Context) error {
	tools, err := s.Repo.ListTools(c.Request().Context())
	if err != nil {
		return err
	}
	out := ToolList{Count: len(tools), Tools: make([]models.PublicTool, 0, len(tools))}
	for _, t := range tools {
		out.Tools = append(out.Tools, t.Public())
	}
	return c.JSON(http.StatusOK, out)
}

// TestToolRequest is the optional body of POST /tools/{toolId}/test.
type TestToolRequest struct {
	Prompt     string   `json:"prompt"`
	InputText  string   `json:"inputText"`
	InputFiles []string `json:"inputFiles"`
	Model      string   `json:"model"`
}

// ToolSummary names the tool a test ran against.
type ToolSummary struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Provider models.Provider `json:"provider"`
}

// TestToolResponse is the body of a successful tool test.
type TestToolResponse struct {
	Success bool          `json:"success"`
	Tool    ToolSummary   `json:"tool"`
	Result  models.Output `json:"result"`
}

// TestToolFailure is the body of a failed tool test.
type TestToolFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TestTool runs one invocation against a tool
// (POST /api/v1/tools/{toolId}/test)
func (s *Server) TestTool(c echo.Context, toolID string) error {
	ctx := c.Request().Context()

	var req TestToolRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
		}
	}
	if req.Prompt == "" {
		req.Prompt = defaultTestPrompt
	}
	if req.InputText == "" {
		req.InputText = defaultTestInput
	}
	if req.InputFiles == nil {
		req.InputFiles = []string{}
	}

	tool, err := s.Repo.GetTool(ctx, toolID)
	if err != nil {
		return err
	}

	out, err := s.Engine.InvokeTool(ctx, models.Invocation{
		ToolID:     tool.ID,
		Prompt:     req.Prompt,
		InputText:  req.InputText,
		InputFiles: req.InputFiles,
		Model:      req.Model,
	})
	if err != nil {
		s.Logger.Warn("tool test failed", "tool_id", tool.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, TestToolFailure{
			Success: false,
			Error:   "Tool execution failed",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, TestToolResponse{
		Success: true,
		Tool:    ToolSummary{ID: tool.ID, Title: tool.Title, Provider: tool.Provider},
		Result:  out,
	})
}
