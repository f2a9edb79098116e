// Package provider adapts the supported model APIs to one call contract.
package provider

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// Kind selects an adapter. OpenAI tools split into chat, image and
// transcription kinds.
type Kind string

const (
	KindOpenAIChat  Kind = "openai-chat"
	KindOpenAIImage Kind = "openai-image"
	KindAnthropic   Kind = "anthropic"
	KindGoogle      Kind = "google"
	KindCustom      Kind = "custom"

	// KindOpenAITranscription has no adapter; speech input is not supported.
	KindOpenAITranscription Kind = "openai-transcription"
)

// Adapter performs one request against an external API and normalizes the
// answer.
type Adapter interface {
	Invoke(ctx context.Context, tool *models.Tool, prompt string, in models.Input, model string) (models.Output, error)
}

// Options configures the adapters built by NewSet. Empty base URLs fall back
// to the public API hosts.
type Options struct {
	HTTPClient       *http.Client
	OpenAIBaseURL    string
	AnthropicBaseURL string
	GoogleBaseURL    string
}

// Set is the dispatch table from Kind to Adapter.
type Set struct {
	adapters map[Kind]Adapter
}

// NewSet builds the adapters for every Kind around one shared HTTP client.
func NewSet(opts Options) *Set {
	client := opts.HTTPClient
	if client == nil {
		client = NewHTTPClient()
	}
	return NewSetFrom(map[Kind]Adapter{
		KindOpenAIChat:  NewOpenAIChat(client, opts.OpenAIBaseURL),
		KindOpenAIImage: NewOpenAIImage(client, opts.OpenAIBaseURL),
		KindAnthropic:   NewAnthropic(client, opts.AnthropicBaseURL),
		KindGoogle:      NewGoogle(client, opts.GoogleBaseURL),
		KindCustom:      NewCustom(client),
	})
}

// NewSetFrom wraps an explicit table.
func NewSetFrom(adapters map[Kind]Adapter) *Set {
	return &Set{adapters: adapters}
}

// Adapter returns the adapter registered for k.
func (s *Set) Adapter(k Kind) (Adapter, bool) {
	a, ok := s.adapters[k]
	return a, ok
}

// NewHTTPClient returns the client shared by the adapters. Requests are
// traced through otelhttp; deadlines come from the caller's context.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// Resolution is the provider and adapter chosen for a tool.
type Resolution struct {
	Provider models.Provider
	Kind     Kind
	// Sniffed is true when the provider was guessed from tool metadata.
	Sniffed bool
}

// Resolve picks the provider and adapter kind for tool. An explicit tag is
// used as-is. Untagged or custom tools without an endpoint are matched
// against their title, description and keywords; this keyword sniff only
// exists for tool records created before providers were tagged.
func Resolve(tool *models.Tool) Resolution {
	p := tool.Provider
	if p == "" || !p.Valid() {
		p = models.ProviderCustom
	}

	res := Resolution{Provider: p}
	if p == models.ProviderCustom && tool.APIEndpoint == "" {
		if sniffed, ok := sniffProvider(tool.SearchText()); ok {
			res.Provider = sniffed
			res.Sniffed = true
		}
	}
	res.Kind = kindFor(tool, res.Provider)
	return res
}

func sniffProvider(text string) (models.Provider, bool) {
	switch {
	case containsAny(text, "gpt", "openai", "dall-e", "whisper"):
		return models.ProviderOpenAI, true
	case containsAny(text, "claude", "anthropic"):
		return models.ProviderAnthropic, true
	case containsAny(text, "gemini", "google"):
		return models.ProviderGoogle, true
	}
	return "", false
}

func kindFor(tool *models.Tool, p models.Provider) Kind {
	switch p {
	case models.ProviderOpenAI:
		switch {
		case isImageTool(tool):
			return KindOpenAIImage
		case hasMarker(tool, "whisper", "transcription", "transcribe"):
			return KindOpenAITranscription
		}
		return KindOpenAIChat
	case models.ProviderAnthropic:
		return KindAnthropic
	case models.ProviderGoogle:
		return KindGoogle
	}
	return KindCustom
}

// isImageTool reports whether an OpenAI tool generates images rather than
// chat completions.
func isImageTool(tool *models.Tool) bool {
	return hasMarker(tool, "dall-e", "image generation", "image-generation", "gpt-image")
}

// hasMarker matches markers against the tool's search text and model names.
func hasMarker(tool *models.Tool, markers ...string) bool {
	if containsAny(tool.SearchText(), markers...) {
		return true
	}
	for _, m := range tool.Models {
		if containsAny(strings.ToLower(m), markers...) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
