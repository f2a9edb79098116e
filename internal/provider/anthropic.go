package provider

import (
	"context"
	"net/http"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	messagesPath            = "/v1/messages"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 4096
	defaultSystemPrompt     = "You are a helpful assistant."
)

var _ Adapter = (*Anthropic)(nil)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Anthropic calls the Messages API.
type Anthropic struct {
	client  *http.Client
	baseURL string
}

// NewAnthropic creates the adapter. An empty baseURL targets the public API.
func NewAnthropic(client *http.Client, baseURL string) *Anthropic {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &Anthropic{client: client, baseURL: baseURL}
}

// Invoke sends the prompt as the system prompt and the input text as the
// single user turn.
func (a *Anthropic) Invoke(ctx context.Context, tool *models.Tool, prompt string, in models.Input, model string) (models.Output, error) {
	model, err := resolveModel(tool, model, anthropicFamily)
	if err != nil {
		return models.Output{}, err
	}

	system := prompt
	if system == "" {
		system = defaultSystemPrompt
	}
	req := anthropicRequest{
		Model:     model,
		MaxTokens: anthropicMaxTokens,
		System:    system,
		Messages:  []anthropicMessage{},
	}
	if in.Text != "" {
		req.Messages = append(req.Messages, anthropicMessage{Role: "user", Content: in.Text})
	}

	header := http.Header{}
	header.Set("X-Api-Key", tool.APIKey)
	header.Set("Anthropic-Version", anthropicVersion)

	data, err := postJSON(ctx, a.client, a.baseURL+messagesPath, header, req)
	if err != nil {
		return models.Output{}, err
	}

	var resp anthropicResponse
	if err := decode("anthropic", data, &resp); err != nil {
		return models.Output{}, err
	}
	out := models.Output{OutputFiles: cloneFiles(in.Files)}
	if len(resp.Content) > 0 {
		out.OutputText = resp.Content[0].Text
	}
	return out, nil
}
