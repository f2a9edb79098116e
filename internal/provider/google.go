package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

var _ Adapter = (*Google)(nil)

// Google calls Gemini generateContent through the genai SDK. A client is
// created per call because every tool carries its own key.
type Google struct {
	client  *http.Client
	baseURL string
}

// NewGoogle creates the adapter. An empty baseURL keeps the SDK default.
func NewGoogle(client *http.Client, baseURL string) *Google {
	return &Google{client: client, baseURL: baseURL}
}

// Invoke sends the input text as the user content and the prompt as the
// system instruction. Input files are passed through to the output.
func (a *Google) Invoke(ctx context.Context, tool *models.Tool, prompt string, in models.Input, model string) (models.Output, error) {
	model, err := resolveModel(tool, model, googleFamily)
	if err != nil {
		return models.Output{}, err
	}

	cfg := &genai.ClientConfig{
		APIKey:     tool.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.client,
	}
	if a.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: a.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return models.Output{}, apperr.Configuration("gemini client: %v", err)
	}

	var contents []*genai.Content
	if in.Text != "" {
		contents = append(contents, &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: in.Text}},
		})
	}
	var config *genai.GenerateContentConfig
	if prompt != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt}}},
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return models.Output{}, googleError(err)
	}
	return models.Output{OutputText: firstCandidateText(resp), OutputFiles: cloneFiles(in.Files)}, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func googleError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apperr.Upstream(apiErrPtr.Code, apiErrPtr.Message)
	}
	return apperr.Network(err)
}
