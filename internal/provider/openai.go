package provider

import (
	"context"
	"net/http"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	chatCompletionsPath  = "/v1/chat/completions"
	imageGenerationsPath = "/v1/images/generations"
	imageSize            = "1024x1024"
)

var (
	_ Adapter = (*OpenAIChat)(nil)
	_ Adapter = (*OpenAIImage)(nil)
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIChat calls the chat completions endpoint.
type OpenAIChat struct {
	client  *http.Client
	baseURL string
}

// NewOpenAIChat creates the chat adapter. An empty baseURL targets the
// public API.
func NewOpenAIChat(client *http.Client, baseURL string) *OpenAIChat {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIChat{client: client, baseURL: baseURL}
}

// Invoke sends the prompt as the system message and the input text as the
// user message. Input files are passed through to the output.
func (a *OpenAIChat) Invoke(ctx context.Context, tool *models.Tool, prompt string, in models.Input, model string) (models.Output, error) {
	model, err := resolveModel(tool, model, openAIFamily)
	if err != nil {
		return models.Output{}, err
	}

	req := chatRequest{Model: model, Messages: []chatMessage{}}
	if prompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: prompt})
	}
	if in.Text != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "user", Content: in.Text})
	}

	data, err := postJSON(ctx, a.client, a.baseURL+chatCompletionsPath, bearer(tool.APIKey), req)
	if err != nil {
		return models.Output{}, err
	}

	var resp chatResponse
	if err := decode("openai", data, &resp); err != nil {
		return models.Output{}, err
	}
	out := models.Output{OutputFiles: cloneFiles(in.Files)}
	if len(resp.Choices) > 0 {
		out.OutputText = resp.Choices[0].Message.Content
	}
	return out, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// OpenAIImage calls the image generation endpoint.
type OpenAIImage struct {
	client  *http.Client
	baseURL string
}

// NewOpenAIImage creates the image adapter.
func NewOpenAIImage(client *http.Client, baseURL string) *OpenAIImage {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIImage{client: client, baseURL: baseURL}
}

// Invoke generates one image from the input text, or from the prompt when
// there is no input text. The image URL is the only output file.
func (a *OpenAIImage) Invoke(ctx context.Context, tool *models.Tool, prompt string, in models.Input, model string) (models.Output, error) {
	model, err := resolveModel(tool, model, imageFamily)
	if err != nil {
		return models.Output{}, err
	}

	text := in.Text
	if text == "" {
		text = prompt
	}

	data, err := postJSON(ctx, a.client, a.baseURL+imageGenerationsPath, bearer(tool.APIKey), imageRequest{
		Model:  model,
		Prompt: text,
		N:      1,
		Size:   imageSize,
	})
	if err != nil {
		return models.Output{}, err
	}

	var resp imageResponse
	if err := decode("openai", data, &resp); err != nil {
		return models.Output{}, err
	}
	out := models.Output{OutputText: "Image generated: " + text, OutputFiles: []string{}}
	if len(resp.Data) > 0 && resp.Data[0].URL != "" {
		out.OutputFiles = append(out.OutputFiles, resp.Data[0].URL)
	}
	return out, nil
}

func bearer(key string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+key)
	return h
}
