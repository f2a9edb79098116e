package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/extract"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 16 << 20

// send performs the request and returns the body of a 2xx response.
// Transport failures become network errors and other statuses become
// upstream errors carrying the provider's message.
func send(ctx context.Context, client *http.Client, method, url string, header http.Header, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, apperr.Configuration("invalid request to %s: %v", url, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.Network(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(resp.StatusCode, data)
	}
	return data, nil
}

// postJSON marshals payload and posts it.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	return send(ctx, client, http.MethodPost, url, header, body)
}

// upstreamError reads error.message, message or a string error field from
// the response, falling back to the status text.
func upstreamError(status int, body []byte) *apperr.Error {
	for _, path := range []string{"error.message", "message", "error"} {
		if r, ok := extract.Extract(body, path); ok && r.IsString() && r.Text() != "" {
			return apperr.Upstream(status, r.Text())
		}
	}
	return apperr.Upstream(status, "")
}

// decode unmarshals a success body, reporting malformed payloads as upstream
// errors.
func decode(api string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &apperr.Error{
			Code:       apperr.CodeUpstream,
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("%s: malformed response", api),
			Cause:      err,
		}
	}
	return nil
}

func cloneFiles(files []string) []string {
	out := make([]string, len(files))
	copy(out, files)
	return out
}
