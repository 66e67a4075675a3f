// Package websearch queries a SearXNG instance for the engine's web-search
// fallback. Web search is optional infrastructure: a client constructed
// without a base URL degrades to empty results instead of failing, so the
// resolution engine can treat "no web search configured" and "web found
// nothing" identically.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/koopa0/chinchilla/internal/log"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client talks to a SearXNG instance. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// New creates a Client. An empty baseURL yields a disabled client whose
// Search always returns no results.
func New(baseURL string, timeout time.Duration, logger log.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Enabled reports whether a SearXNG instance is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// searxngResponse mirrors the fields we use from SearXNG's JSON format.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs one query and returns at most limit results. Snippets are
// stripped of any HTML markup SearXNG passes through from the engines.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if !c.Enabled() {
		c.logger.Debug("web search disabled, returning no results")
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("language", "ko")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying searxng: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	var parsed searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding searxng response: %w", err)
	}

	results := make([]Result, 0, limit)
	for _, r := range parsed.Results {
		if len(results) == limit {
			break
		}
		snippet := stripHTML(r.Content)
		if r.Title == "" && snippet == "" {
			continue
		}
		results = append(results, Result{
			Title:   stripHTML(r.Title),
			URL:     r.URL,
			Snippet: snippet,
		})
	}

	c.logger.Debug("web search completed", "query", query, "results", len(results))
	return results, nil
}

// stripHTML flattens any markup to plain text. Plain strings pass through
// unchanged.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
