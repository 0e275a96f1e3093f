package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-mindmap-be/pkg/outline"
)

// TextConnector handles pasted plain text. It is the only connector with
// no network I/O, which lets the orchestrator process text ingestions
// synchronously.
type TextConnector struct{}

var _ Connector = &TextConnector{}

func NewTextConnector() *TextConnector {
	return &TextConnector{}
}

func (c *TextConnector) Validate(payload RawPayload) error {
	if strings.TrimSpace(payload.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidPayload)
	}
	if len(payload.Text) > MaxTextBytes {
		return fmt.Errorf("%w: text is %d bytes, limit is %d", ErrSizeLimitExceeded, len(payload.Text), MaxTextBytes)
	}
	return nil
}

func (c *TextConnector) Extract(ctx context.Context, payload RawPayload) (*ExtractedContent, error) {
	if err := c.Validate(payload); err != nil {
		return nil, err
	}

	title := payload.Title
	if title == "" {
		title = "Pasted Text"
	}
	text := strings.TrimSpace(payload.Text)

	return &ExtractedContent{
		Text: text,
		Metadata: SourceMetadata{
			Title:        title,
			TimestampISO: time.Now().UTC().Format(time.RFC3339),
			WordCount:    countWords(text),
			SourceType:   SourceText,
		},
		Citations: []outline.Citation{
			{Title: title},
		},
	}, nil
}
