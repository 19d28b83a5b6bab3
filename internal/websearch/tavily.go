// Package websearch provides a Tavily client for live web search augmentation.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/counselhq/counsel/internal/models"
	"github.com/counselhq/counsel/pkg/utils"
	"go.uber.org/zap"
)

// queryQualifier is prepended to every query to keep results in the legal domain.
const queryQualifier = "company law "

// contentLimit bounds each result's textual content before it reaches callers.
const contentLimit = 500

// Client calls the Tavily search API. A nil *Client is valid and means web
// search is unconfigured: Search returns no results. Failures are logged and
// swallowed; Search never returns an error to the caller.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// Config configures the Tavily client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a Tavily client, or nil when no API key is configured.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: t},
		logger:  logger,
	}
}

// Configured reports whether the client can perform searches.
func (c *Client) Configured() bool {
	return c != nil
}

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search returns up to maxResults ranked snippets for query, with the domain
// qualifier prepended and content truncated to a bounded length. Any failure
// yields an empty result.
func (c *Client) Search(ctx context.Context, query string, maxResults int) []models.WebResult {
	if c == nil {
		return nil
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	results, err := c.search(ctx, queryQualifier+query, maxResults)
	if err != nil {
		c.logger.Warn("web search failed", zap.Error(err))
		return nil
	}
	return results
}

func (c *Client) search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error) {
	body, err := json.Marshal(searchRequest{
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, string(b))
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]models.WebResult, 0, len(out.Results))
	for _, r := range out.Results {
		if len(results) >= maxResults {
			break
		}
		results = append(results, models.WebResult{
			Title:          r.Title,
			URL:            r.URL,
			Content:        utils.Truncate(r.Content, contentLimit),
			RelevanceScore: r.Score,
		})
	}
	return results, nil
}
