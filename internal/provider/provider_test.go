package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tool     models.Tool
		provider models.Provider
		kind     Kind
		sniffed  bool
	}{
		{name: "explicit openai", tool: models.Tool{Provider: "openai", Title: "Writer"}, provider: models.ProviderOpenAI, kind: KindOpenAIChat},
		{name: "explicit openai image", tool: models.Tool{Provider: "openai", Title: "DALL-E Studio"}, provider: models.ProviderOpenAI, kind: KindOpenAIImage},
		{name: "image by model", tool: models.Tool{Provider: "openai", Title: "Pictures", Models: []string{"dall-e-3"}}, provider: models.ProviderOpenAI, kind: KindOpenAIImage},
		{name: "openai transcription", tool: models.Tool{Provider: "openai", Title: "Speech", Models: []string{"whisper-1"}}, provider: models.ProviderOpenAI, kind: KindOpenAITranscription},
		{name: "untagged sniff whisper", tool: models.Tool{Title: "Whisper Transcriber"}, provider: models.ProviderOpenAI, kind: KindOpenAITranscription, sniffed: true},
		{name: "explicit anthropic", tool: models.Tool{Provider: "anthropic"}, provider: models.ProviderAnthropic, kind: KindAnthropic},
		{name: "explicit google", tool: models.Tool{Provider: "google"}, provider: models.ProviderGoogle, kind: KindGoogle},
		{name: "custom with endpoint", tool: models.Tool{Provider: "custom", Title: "GPT wrapper", APIEndpoint: "http://x"}, provider: models.ProviderCustom, kind: KindCustom},
		{name: "untagged sniff openai", tool: models.Tool{Title: "GPT-4 Writer"}, provider: models.ProviderOpenAI, kind: KindOpenAIChat, sniffed: true},
		{name: "untagged sniff anthropic", tool: models.Tool{Description: "Powered by Claude"}, provider: models.ProviderAnthropic, kind: KindAnthropic, sniffed: true},
		{name: "untagged sniff google keyword", tool: models.Tool{Keywords: []string{"Gemini"}}, provider: models.ProviderGoogle, kind: KindGoogle, sniffed: true},
		{name: "untagged no match", tool: models.Tool{Title: "Summarizer"}, provider: models.ProviderCustom, kind: KindCustom},
		{name: "unknown tag treated as custom", tool: models.Tool{Provider: "mistral", Title: "claude clone"}, provider: models.ProviderAnthropic, kind: KindAnthropic, sniffed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Resolve(&tt.tool)
			assert.Equal(t, tt.provider, got.Provider)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.sniffed, got.Sniffed)
		})
	}
}

func TestResolveModel(t *testing.T) {
	t.Parallel()

	t.Run("selected wins", func(t *testing.T) {
		m, err := resolveModel(&models.Tool{Models: []string{"a", "b"}}, "b", openAIFamily)
		require.NoError(t, err)
		assert.Equal(t, "b", m)
	})

	t.Run("first declared model", func(t *testing.T) {
		m, err := resolveModel(&models.Tool{Models: []string{"a", "b"}}, "", openAIFamily)
		require.NoError(t, err)
		assert.Equal(t, "a", m)
	})

	t.Run("selected outside declared list", func(t *testing.T) {
		_, err := resolveModel(&models.Tool{Title: "T", Models: []string{"a", "b"}}, "c", openAIFamily)
		assert.ErrorIs(t, err, apperr.ErrModelNotAvailable)
	})

	t.Run("selected with no declared list", func(t *testing.T) {
		m, err := resolveModel(&models.Tool{}, "anything", openAIFamily)
		require.NoError(t, err)
		assert.Equal(t, "anything", m)
	})

	t.Run("metadata guesses", func(t *testing.T) {
		cases := map[string]struct {
			tool models.Tool
			f    family
			want string
		}{
			"gpt-3.5":       {models.Tool{Title: "GPT-3.5 helper"}, openAIFamily, "gpt-3.5-turbo"},
			"gpt-4-turbo":   {models.Tool{Keywords: []string{"gpt-4-turbo"}}, openAIFamily, "gpt-4-turbo-preview"},
			"gpt-4":         {models.Tool{Title: "GPT-4"}, openAIFamily, "gpt-4"},
			"openai other":  {models.Tool{Title: "Writer"}, openAIFamily, "gpt-4"},
			"claude haiku":  {models.Tool{Title: "Claude-3-Haiku"}, anthropicFamily, "claude-3-haiku-20240307"},
			"claude sonnet": {models.Tool{Title: "claude-3-sonnet"}, anthropicFamily, "claude-3-sonnet-20240229"},
			"claude other":  {models.Tool{Title: "Claude"}, anthropicFamily, "claude-3-opus-20240229"},
			"gemini vision": {models.Tool{Keywords: []string{"multimodal"}}, googleFamily, "gemini-pro-vision"},
			"gemini other":  {models.Tool{Title: "Gemini"}, googleFamily, "gemini-pro"},
			"image":         {models.Tool{Title: "Pictures"}, imageFamily, "dall-e-3"},
		}
		for name, c := range cases {
			m, err := resolveModel(&c.tool, "", c.f)
			require.NoError(t, err, name)
			assert.Equal(t, c.want, m, name)
		}
	})
}

func TestNewSetRegistersEveryKind(t *testing.T) {
	t.Parallel()

	set := NewSet(Options{})
	for _, k := range []Kind{KindOpenAIChat, KindOpenAIImage, KindAnthropic, KindGoogle, KindCustom} {
		_, ok := set.Adapter(k)
		assert.True(t, ok, k)
	}
	_, ok := set.Adapter(KindOpenAITranscription)
	assert.False(t, ok)
}
