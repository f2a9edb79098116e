package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/extract"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/template"
)

var _ Adapter = (*Custom)(nil)

// Heuristic output fields, checked in order when the tool has no response path.
var outputFields = []string{"text", "content", "output", "result", "message"}

// Response fields that may carry generated file references.
var fileFields = []string{"files", "images", "urls"}

// Custom calls an arbitrary HTTP endpoint described entirely by the tool
// record: method, headers, body template and response path.
type Custom struct {
	client *http.Client
}

// NewCustom creates the adapter.
func NewCustom(client *http.Client) *Custom {
	return &Custom{client: client}
}

// Invoke renders the tool's request template, sends it and extracts the
// answer.
func (a *Custom) Invoke(ctx context.Context, tool *models.Tool, prompt string, in models.Input, model string) (models.Output, error) {
	if tool.APIEndpoint == "" {
		return models.Output{}, apperr.Configuration("custom tool %s has no API endpoint configured", tool.Title)
	}
	if model == "" && len(tool.Models) > 0 {
		model = tool.Models[0]
	}

	values := map[string]string{
		"apiKey":     tool.APIKey,
		"prompt":     prompt,
		"inputText":  in.Text,
		"model":      model,
		"inputFiles": strings.Join(in.Files, ","),
	}

	body := requestBody(tool, prompt, in.Text, model, values)
	header := customHeaders(tool)
	method := tool.Method()

	var (
		data []byte
		err  error
	)
	if method == http.MethodGet {
		endpoint, qerr := withQuery(tool.APIEndpoint, body)
		if qerr != nil {
			return models.Output{}, qerr
		}
		data, err = send(ctx, a.client, method, endpoint, header, nil)
	} else {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return models.Output{}, fmt.Errorf("failed to marshal request body: %w", merr)
		}
		data, err = send(ctx, a.client, method, tool.APIEndpoint, header, payload)
	}
	if err != nil {
		return models.Output{}, err
	}

	return models.Output{
		OutputText:  outputText(tool.ResponsePath, data),
		OutputFiles: append(cloneFiles(in.Files), responseFiles(data)...),
	}, nil
}

// requestBody renders the tool template, or builds {prompt, input, model}
// when the tool declares none.
func requestBody(tool *models.Tool, prompt, text, model string, values map[string]string) template.Value {
	if !tool.RequestBodyTemplate.Empty() {
		return tool.RequestBodyTemplate.Render(values)
	}
	body := template.NewObject().
		Set("prompt", template.String(prompt)).
		Set("input", template.String(text))
	if model != "" {
		body.Set("model", template.String(model))
	}
	return body
}

// customHeaders applies the tool headers over a JSON content type. A bearer
// token is added unless the tool already sets Authorization or x-api-key.
func customHeaders(tool *models.Tool) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	keyValues := map[string]string{"apiKey": tool.APIKey}
	hasAuth := false
	for k, v := range tool.APIHeaders {
		h.Set(k, template.RenderString(v, keyValues))
		if strings.EqualFold(k, "authorization") || strings.EqualFold(k, "x-api-key") {
			hasAuth = true
		}
	}
	if !hasAuth && tool.APIKey != "" {
		h.Set("Authorization", "Bearer "+tool.APIKey)
	}
	return h
}

// withQuery appends the top-level fields of body as query parameters. Null
// fields are skipped.
func withQuery(endpoint string, body template.Value) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", apperr.Configuration("invalid API endpoint %q: %v", endpoint, err)
	}
	obj, ok := body.(*template.Object)
	if !ok {
		return u.String(), nil
	}
	q := u.Query()
	obj.Each(func(k string, v template.Value) {
		if v == nil || v.Kind() == template.KindNull {
			return
		}
		q.Add(k, template.Stringify(v))
	})
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// outputText applies the response path when set. Without one, the first
// non-empty heuristic field wins, then the whole response.
func outputText(path string, data []byte) string {
	if path != "" {
		if r, ok := extract.Extract(data, path); ok {
			return r.Text()
		}
		return ""
	}
	if !json.Valid(data) {
		return string(data)
	}
	for _, field := range outputFields {
		r, ok := extract.Extract(data, field)
		if !ok {
			continue
		}
		if text := r.Text(); text != "" && !isFalsy(r) {
			return text
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return strings.TrimSpace(string(data))
	}
	return buf.String()
}

// isFalsy reports values that do not count as an answer: false and zero.
func isFalsy(r extract.Result) bool {
	switch r.Type {
	case jsonparser.Boolean:
		return string(r.Raw) == "false"
	case jsonparser.Number:
		return string(r.Raw) == "0"
	}
	return false
}

func responseFiles(data []byte) []string {
	if !json.Valid(data) {
		return nil
	}
	for _, field := range fileFields {
		if files, ok := extract.Strings(data, field); ok {
			return files
		}
	}
	return nil
}
