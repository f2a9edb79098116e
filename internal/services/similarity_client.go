package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SimilarityItem is one candidate sent to the similarity service.
type SimilarityItem struct {
	ID    string   `json:"id"`
	Texts []string `json:"texts"`
}

// SimilarityScore is one ranked result, best first.
type SimilarityScore struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// SimilarityClient ranks candidates against a query.
type SimilarityClient interface {
	Rank(ctx context.Context, query string, items []SimilarityItem) ([]SimilarityScore, error)
}

// SimilarityOptions configures HTTPSimilarityClient. When TokenURL and
// ClientID are set, requests carry a client-credentials token.
type SimilarityOptions struct {
	URL          string
	Timeout      time.Duration
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// HTTPSimilarityClient talks to the similarity sidecar over HTTP.
type HTTPSimilarityClient struct {
	url    string
	client *http.Client
}

// NewHTTPSimilarityClient creates a new HTTPSimilarityClient.
func NewHTTPSimilarityClient(opts SimilarityOptions) *HTTPSimilarityClient {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	client := base
	if opts.TokenURL != "" && opts.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		client = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	}
	if opts.Timeout > 0 {
		c := *client
		c.Timeout = opts.Timeout
		client = &c
	}
	return &HTTPSimilarityClient{url: opts.URL, client: client}
}

// Rank returns the service's scores for items, best first.
func (c *HTTPSimilarityClient) Rank(ctx context.Context, query string, items []SimilarityItem) ([]SimilarityScore, error) {
	requestBody, err := json.Marshal(struct {
		Query string           `json:"query"`
		Items []SimilarityItem `json:"items"`
	}{Query: query, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/similarity", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to rank tools: status code %d", resp.StatusCode)
	}

	var body struct {
		Scores []SimilarityScore `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return body.Scores, nil
}
