package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// Invoker runs a single tool call.
type Invoker interface {
	InvokeTool(ctx context.Context, inv models.Invocation) (models.Output, error)
}

// Runner executes pipelines.
type Runner interface {
	Run(ctx context.Context, pipelineID string, req models.RunRequest) (*models.RunResult, error)
}

type Server struct {
	mcpServer *server.MCPServer
	tools     repository.ToolStore
	engine    Invoker
	runner    Runner
}

func NewServer(tools repository.ToolStore, engine Invoker, runner Runner) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"McCarthy Tools",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		tools:  tools,
		engine: engine,
		runner: runner,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_tools",
			mcp.WithDescription("List the marketplace tools that can be invoked"),
		),
		s.handleListTools,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"invoke_tool",
			mcp.WithDescription("Invoke a marketplace tool once"),
			mcp.WithString("toolId", mcp.Required(), mcp.Description("The ID of the tool")),
			mcp.WithString("prompt", mcp.Description("Instruction sent to the tool")),
			mcp.WithString("inputText", mcp.Description("Text the tool works on")),
			mcp.WithArray("inputFiles", mcp.Description("File references passed to the tool"), mcp.WithStringItems()),
			mcp.WithString("model", mcp.Description("Model to use; must be one the tool declares")),
		),
		s.handleInvokeTool,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_pipeline",
			mcp.WithDescription("Run every segment of a pipeline in order"),
			mcp.WithString("pipelineId", mcp.Required(), mcp.Description("The ID of the pipeline")),
			mcp.WithString("initialInput", mcp.Required(), mcp.Description("Input for the first segment")),
			mcp.WithArray("inputFiles", mcp.Description("File references for the first segment"), mcp.WithStringItems()),
		),
		s.handleRunPipeline,
	)
}

func (s *Server) handleListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tools, err := s.tools.ListTools(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tools: %v", err)), nil
	}
	public := make([]models.PublicTool, 0, len(tools))
	for _, t := range tools {
		public = append(public, t.Public())
	}

	jsonBytes, _ := json.Marshal(public)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleInvokeTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	toolID, ok := args["toolId"].(string)
	if !ok || toolID == "" {
		return mcp.NewToolResultError("Missing required parameter: toolId"), nil
	}

	out, err := s.engine.InvokeTool(ctx, models.Invocation{
		ToolID:     toolID,
		Prompt:     stringArg(args, "prompt"),
		InputText:  stringArg(args, "inputText"),
		InputFiles: stringsArg(args, "inputFiles"),
		Model:      stringArg(args, "model"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jsonBytes, _ := json.Marshal(out)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRunPipeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	pipelineID, ok := args["pipelineId"].(string)
	if !ok || pipelineID == "" {
		return mcp.NewToolResultError("Missing required parameter: pipelineId"), nil
	}
	initialInput, ok := args["initialInput"].(string)
	if !ok || initialInput == "" {
		return mcp.NewToolResultError("Missing required parameter: initialInput"), nil
	}

	res, err := s.runner.Run(ctx, pipelineID, models.RunRequest{
		InitialInput: initialInput,
		InputFiles:   stringsArg(args, "inputFiles"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jsonBytes, _ := json.Marshal(res)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func stringsArg(args map[string]interface{}, key string) []string {
	out := []string{}
	raw, _ := args[key].([]interface{})
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
