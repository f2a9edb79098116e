package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/template"
)

// Provider is the declared API family of a tool.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderCustom    Provider = "custom"
)

// Valid reports whether p is one of the known provider tags.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderCustom:
		return true
	}
	return false
}

// Tool is an externally hosted AI capability as configured in the marketplace.
// APIKey and APIEndpoint are parsed from configuration but never written back
// out by MarshalJSON.
type Tool struct {
	ID                  string             `json:"id" yaml:"id"`
	Title               string             `json:"title" yaml:"title"`
	Description         string             `json:"description" yaml:"description"`
	Provider            Provider           `json:"provider,omitempty" yaml:"provider"`
	APIKey              string             `json:"apiKey,omitempty" yaml:"apiKey"`
	APIEndpoint         string             `json:"apiEndpoint,omitempty" yaml:"apiEndpoint"`
	APIMethod           string             `json:"apiMethod,omitempty" yaml:"apiMethod"`
	APIHeaders          map[string]string  `json:"apiHeaders,omitempty" yaml:"apiHeaders"`
	RequestBodyTemplate *template.Template `json:"requestBodyTemplate,omitempty" yaml:"requestBodyTemplate"`
	ResponsePath        string             `json:"responsePath,omitempty" yaml:"responsePath"`
	Models              []string           `json:"models,omitempty" yaml:"models"`
	Keywords            []string           `json:"keywords,omitempty" yaml:"keywords"`
	UseCases            []string           `json:"useCases,omitempty" yaml:"useCases"`
	CreatedAt           time.Time          `json:"createdAt" yaml:"-"`
}

// PublicTool is the outward view of a Tool, without credential or endpoint.
type PublicTool struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Provider     Provider  `json:"provider,omitempty"`
	APIMethod    string    `json:"apiMethod"`
	ResponsePath string    `json:"responsePath,omitempty"`
	Models       []string  `json:"models"`
	Keywords     []string  `json:"keywords"`
	UseCases     []string  `json:"useCases"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public returns the view of t that is safe to hand to callers.
func (t *Tool) Public() PublicTool {
	return PublicTool{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Provider:     t.Provider,
		APIMethod:    t.Method(),
		ResponsePath: t.ResponsePath,
		Models:       nonNil(t.Models),
		Keywords:     nonNil(t.Keywords),
		UseCases:     nonNil(t.UseCases),
		CreatedAt:    t.CreatedAt,
	}
}

// MarshalJSON serializes the public view only.
func (t Tool) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Public())
}

// Method returns the upper-cased HTTP method, POST when unset.
func (t *Tool) Method() string {
	m := strings.ToUpper(strings.TrimSpace(t.APIMethod))
	if m == "" {
		return "POST"
	}
	return m
}

// HasModel reports whether m is in the declared model list.
func (t *Tool) HasModel(m string) bool {
	for _, candidate := range t.Models {
		if candidate == m {
			return true
		}
	}
	return false
}

// MetadataText is the lower-cased title and keywords, used when guessing a
// model id from tool metadata.
func (t *Tool) MetadataText() string {
	parts := append([]string{t.Title}, t.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

// SearchText is the lower-cased title, description and keywords, used when
// sniffing the provider of untagged tools.
func (t *Tool) SearchText() string {
	parts := append([]string{t.Title, t.Description}, t.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

// SimilarityTexts lists the non-empty descriptive strings of the tool in the
// order the similarity service receives them.
func (t *Tool) SimilarityTexts() []string {
	var out []string
	for _, s := range append(append([]string{t.Title, t.Description}, t.UseCases...), t.Keywords...) {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
