package provider

import (
	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// family groups the model ids one API accepts.
type family struct {
	rules    []modelRule
	fallback string
}

type modelRule struct {
	markers []string
	model   string
}

// Keyword tables used when neither the caller nor the tool names a model.
// Rules are checked in order against Tool.MetadataText.
var (
	openAIFamily = family{
		rules: []modelRule{
			{markers: []string{"gpt-3.5", "gpt-3"}, model: "gpt-3.5-turbo"},
			{markers: []string{"gpt-4-turbo"}, model: "gpt-4-turbo-preview"},
			{markers: []string{"gpt-4"}, model: "gpt-4"},
		},
		fallback: "gpt-4",
	}
	anthropicFamily = family{
		rules: []modelRule{
			{markers: []string{"claude-3-sonnet"}, model: "claude-3-sonnet-20240229"},
			{markers: []string{"claude-3-haiku"}, model: "claude-3-haiku-20240307"},
			{markers: []string{"claude-3-opus"}, model: "claude-3-opus-20240229"},
		},
		fallback: "claude-3-opus-20240229",
	}
	googleFamily = family{
		rules: []modelRule{
			{markers: []string{"gemini-pro-vision", "multimodal", "vision"}, model: "gemini-pro-vision"},
			{markers: []string{"gemini-pro"}, model: "gemini-pro"},
		},
		fallback: "gemini-pro",
	}
	imageFamily = family{fallback: "dall-e-3"}
)

// resolveModel picks the model for a call: the caller's choice, then the
// tool's first declared model, then a guess from tool metadata. When the
// tool declares models the result must be one of them.
func resolveModel(tool *models.Tool, selected string, f family) (string, error) {
	model := selected
	if model == "" && len(tool.Models) > 0 {
		model = tool.Models[0]
	}
	if model == "" {
		model = f.guess(tool.MetadataText())
	}
	if len(tool.Models) > 0 && !tool.HasModel(model) {
		return "", apperr.ModelNotAvailable(model, tool.Title)
	}
	return model, nil
}

func (f family) guess(text string) string {
	for _, r := range f.rules {
		if containsAny(text, r.markers...) {
			return r.model
		}
	}
	return f.fallback
}
