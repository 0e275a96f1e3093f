package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ai-mindmap-be/pkg/outline"
)

const defaultMaxResults = 5
const maxResultsCap = 10

// searchResult is the backend-agnostic hit shape.
type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

// searchBackend is one remote search API. Backends are tried in the
// configured order; the first with credentials wins.
type searchBackend interface {
	name() string
	configured() bool
	search(ctx context.Context, query string, maxResults int) ([]searchResult, error)
}

// WebSearchConnector aggregates results from the first configured search
// backend into a single citation-bearing document.
type WebSearchConnector struct {
	backends []searchBackend
}

var _ Connector = &WebSearchConnector{}

func NewWebSearchConnector(cfg Config) *WebSearchConnector {
	client := &http.Client{Timeout: 20 * time.Second}
	return &WebSearchConnector{
		backends: []searchBackend{
			&serperBackend{apiKey: cfg.SerperKey, client: client},
			&tavilyBackend{apiKey: cfg.TavilyKey, client: client},
			&braveBackend{apiKey: cfg.BraveKey, client: client},
		},
	}
}

func (c *WebSearchConnector) Validate(payload RawPayload) error {
	if strings.TrimSpace(payload.Query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidPayload)
	}
	if payload.MaxResults < 0 || payload.MaxResults > maxResultsCap {
		return fmt.Errorf("%w: maxResults must be between 0 and %d", ErrInvalidPayload, maxResultsCap)
	}
	return nil
}

func (c *WebSearchConnector) Extract(ctx context.Context, payload RawPayload) (*ExtractedContent, error) {
	if err := c.Validate(payload); err != nil {
		return nil, err
	}

	backend := c.pickBackend()
	if backend == nil {
		// Configuration error: fail immediately, retry cannot help.
		return nil, fmt.Errorf("%w: set a serper, tavily or brave api key", ErrNotConfigured)
	}

	maxResults := payload.MaxResults
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	var results []searchResult
	err := withRetry(ctx, func() error {
		var searchErr error
		results, searchErr = backend.search(ctx, payload.Query, maxResults)
		return searchErr
	})
	if err != nil {
		return nil, fmt.Errorf("search via %s: %w", backend.name(), err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no results for query %q", ErrExtractionFailure, payload.Query)
	}

	var sb strings.Builder
	citations := make([]outline.Citation, 0, len(results))
	for i, r := range results {
		block := fmt.Sprintf("[%d] %s\n%s", i+1, r.Title, r.Snippet)
		if sb.Len()+len(block) > MaxSearchBytes {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block)
		citations = append(citations, outline.Citation{
			Title:   r.Title,
			URL:     r.URL,
			Excerpt: r.Snippet,
		})
	}
	text := sb.String()

	return &ExtractedContent{
		Text: text,
		Metadata: SourceMetadata{
			Title:        "Web Search: " + payload.Query,
			TimestampISO: time.Now().UTC().Format(time.RFC3339),
			WordCount:    countWords(text),
			SourceType:   SourceWebSearch,
		},
		Citations: citations,
	}, nil
}

func (c *WebSearchConnector) pickBackend() searchBackend {
	for _, b := range c.backends {
		if b.configured() {
			return b
		}
	}
	return nil
}

// --- Serper (google.serper.dev) ---

type serperBackend struct {
	apiKey string
	client *http.Client
}

func (b *serperBackend) name() string     { return "serper" }
func (b *serperBackend) configured() bool { return b.apiKey != "" }

func (b *serperBackend) search(ctx context.Context, query string, maxResults int) ([]searchResult, error) {
	payload, _ := json.Marshal(map[string]interface{}{"q": query, "num": maxResults})
	req, err := http.NewRequestWithContext(ctx, "POST", "https://google.serper.dev/search", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", b.apiKey)

	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := doSearchRequest(b.client, req, &parsed); err != nil {
		return nil, err
	}

	results := make([]searchResult, 0, len(parsed.Organic))
	for _, o := range parsed.Organic {
		results = append(results, searchResult{Title: o.Title, URL: o.Link, Snippet: o.Snippet})
	}
	return capResults(results, maxResults), nil
}

// --- Tavily (api.tavily.com) ---

type tavilyBackend struct {
	apiKey string
	client *http.Client
}

func (b *tavilyBackend) name() string     { return "tavily" }
func (b *tavilyBackend) configured() bool { return b.apiKey != "" }

func (b *tavilyBackend) search(ctx context.Context, query string, maxResults int) ([]searchResult, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"api_key":     b.apiKey,
		"query":       query,
		"max_results": maxResults,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.tavily.com/search", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := doSearchRequest(b.client, req, &parsed); err != nil {
		return nil, err
	}

	results := make([]searchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, searchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return capResults(results, maxResults), nil
}

// --- Brave (api.search.brave.com) ---

type braveBackend struct {
	apiKey string
	client *http.Client
}

func (b *braveBackend) name() string     { return "brave" }
func (b *braveBackend) configured() bool { return b.apiKey != "" }

func (b *braveBackend) search(ctx context.Context, query string, maxResults int) ([]searchResult, error) {
	endpoint := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", url.QueryEscape(query), maxResults)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	var parsed struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := doSearchRequest(b.client, req, &parsed); err != nil {
		return nil, err
	}

	results := make([]searchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, searchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return capResults(results, maxResults), nil
}

func doSearchRequest(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxSearchBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search backend returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

func capResults(results []searchResult, maxResults int) []searchResult {
	if len(results) > maxResults {
		return results[:maxResults]
	}
	return results
}
