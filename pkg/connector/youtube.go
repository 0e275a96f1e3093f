package connector

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ai-mindmap-be/pkg/outline"
)

// YouTubeConnector fetches a video's caption track from the timedtext
// endpoint and flattens it into transcript text. Video title and channel
// come from the oEmbed endpoint, best-effort.
type YouTubeConnector struct {
	client *http.Client
}

var _ Connector = &YouTubeConnector{}

func NewYouTubeConnector() *YouTubeConnector {
	return &YouTubeConnector{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *YouTubeConnector) Validate(payload RawPayload) error {
	if payload.VideoID == "" {
		return fmt.Errorf("%w: videoId is required", ErrInvalidPayload)
	}
	if payload.URL != "" {
		if _, err := url.ParseRequestURI(payload.URL); err != nil {
			return fmt.Errorf("%w: invalid url: %v", ErrInvalidPayload, err)
		}
	}
	return nil
}

// --- timedtext XML shape ---

type timedtextDoc struct {
	XMLName xml.Name       `xml:"transcript"`
	Lines   []timedtextLine `xml:"text"`
}

type timedtextLine struct {
	Start string `xml:"start,attr"`
	Text  string `xml:",chardata"`
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

func (c *YouTubeConnector) Extract(ctx context.Context, payload RawPayload) (*ExtractedContent, error) {
	if err := c.Validate(payload); err != nil {
		return nil, err
	}

	watchURL := payload.URL
	if watchURL == "" {
		watchURL = "https://www.youtube.com/watch?v=" + payload.VideoID
	}

	var body []byte
	err := withRetry(ctx, func() error {
		var fetchErr error
		body, fetchErr = c.fetch(ctx, fmt.Sprintf("https://video.google.com/timedtext?lang=en&v=%s", url.QueryEscape(payload.VideoID)), MaxTranscriptBytes)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}

	var doc timedtextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: transcript is not valid timedtext xml: %v", ErrExtractionFailure, err)
	}

	var sb strings.Builder
	for _, line := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}
	transcript := sb.String()
	if transcript == "" {
		return nil, fmt.Errorf("%w: video %s has an empty transcript", ErrExtractionFailure, payload.VideoID)
	}
	if len(transcript) > MaxTranscriptBytes {
		return nil, fmt.Errorf("%w: transcript is %d bytes, limit is %d", ErrSizeLimitExceeded, len(transcript), MaxTranscriptBytes)
	}

	title, author := c.lookupOEmbed(ctx, watchURL)
	if title == "" {
		title = "YouTube Video " + payload.VideoID
	}

	return &ExtractedContent{
		Text: transcript,
		Metadata: SourceMetadata{
			Title:        title,
			URL:          watchURL,
			Author:       author,
			TimestampISO: time.Now().UTC().Format(time.RFC3339),
			WordCount:    countWords(transcript),
			SourceType:   SourceYouTube,
		},
		Citations: []outline.Citation{
			{Title: title, URL: watchURL, Author: author},
		},
	}, nil
}

// lookupOEmbed resolves title/author for citations. Failures are
// swallowed: the transcript is the content, metadata is garnish.
func (c *YouTubeConnector) lookupOEmbed(ctx context.Context, watchURL string) (string, string) {
	endpoint := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(watchURL)
	body, err := c.fetch(ctx, endpoint, 64*1024)
	if err != nil {
		return "", ""
	}
	var meta oembedResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return "", ""
	}
	return meta.Title, meta.AuthorName
}

func (c *YouTubeConnector) fetch(ctx context.Context, endpoint string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit+1))
}
