package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"ai-mindmap-be/pkg/outline"
)

// WebConnector fetches a web page and strips it down to readable text,
// dropping script/style/navigation subtrees.
type WebConnector struct {
	client *http.Client
}

var _ Connector = &WebConnector{}

// Elements whose entire subtree is boilerplate for our purposes.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"iframe":   true,
	"svg":      true,
	"form":     true,
}

func NewWebConnector() *WebConnector {
	return &WebConnector{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *WebConnector) Validate(payload RawPayload) error {
	if payload.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidPayload)
	}
	parsed, err := url.ParseRequestURI(payload.URL)
	if err != nil {
		return fmt.Errorf("%w: invalid url: %v", ErrInvalidPayload, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported url scheme %q", ErrInvalidPayload, parsed.Scheme)
	}
	return nil
}

func (c *WebConnector) Extract(ctx context.Context, payload RawPayload) (*ExtractedContent, error) {
	if err := c.Validate(payload); err != nil {
		return nil, err
	}

	var raw []byte
	err := withRetry(ctx, func() error {
		var fetchErr error
		raw, fetchErr = c.fetch(ctx, payload.URL)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	title, text := extractReadableText(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: page %s contains no readable text", ErrExtractionFailure, payload.URL)
	}
	if title == "" {
		title = payload.URL
	}

	return &ExtractedContent{
		Text: text,
		Metadata: SourceMetadata{
			Title:        title,
			URL:          payload.URL,
			TimestampISO: time.Now().UTC().Format(time.RFC3339),
			WordCount:    countWords(text),
			SourceType:   SourceWeb,
		},
		Citations: []outline.Citation{
			{Title: title, URL: payload.URL},
		},
	}, nil
}

func (c *WebConnector) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ai-mindmap-be/1.0 (+content ingestion)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxWebBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxWebBytes {
		return nil, fmt.Errorf("%w: page exceeds %d bytes", ErrSizeLimitExceeded, MaxWebBytes)
	}
	return raw, nil
}

// extractReadableText walks the parsed document collecting text nodes
// outside skipped subtrees, plus the document title.
func extractReadableText(raw []byte) (string, string) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", ""
	}

	var title string
	var sb strings.Builder

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(doc)

	return title, strings.TrimSpace(sb.String())
}
