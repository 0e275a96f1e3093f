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

	"github.com/ledongthuc/pdf"

	"ai-mindmap-be/pkg/outline"
)

// PDFConnector extracts plain text from a PDF document supplied either
// inline (fileBuffer) or by URL (fileUrl).
type PDFConnector struct {
	client *http.Client
}

var _ Connector = &PDFConnector{}

func NewPDFConnector() *PDFConnector {
	return &PDFConnector{
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *PDFConnector) Validate(payload RawPayload) error {
	if payload.Filename == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidPayload)
	}
	if len(payload.FileBuffer) == 0 && payload.FileURL == "" {
		return fmt.Errorf("%w: either fileBuffer or fileUrl is required", ErrInvalidPayload)
	}
	if len(payload.FileBuffer) > MaxPDFBytes {
		return fmt.Errorf("%w: document is %d bytes, limit is %d", ErrSizeLimitExceeded, len(payload.FileBuffer), MaxPDFBytes)
	}
	if payload.FileURL != "" {
		if _, err := url.ParseRequestURI(payload.FileURL); err != nil {
			return fmt.Errorf("%w: invalid fileUrl: %v", ErrInvalidPayload, err)
		}
	}
	return nil
}

func (c *PDFConnector) Extract(ctx context.Context, payload RawPayload) (*ExtractedContent, error) {
	if err := c.Validate(payload); err != nil {
		return nil, err
	}

	raw := payload.FileBuffer
	if len(raw) == 0 {
		var err error
		err = withRetry(ctx, func() error {
			var fetchErr error
			raw, fetchErr = c.download(ctx, payload.FileURL)
			return fetchErr
		})
		if err != nil {
			return nil, fmt.Errorf("fetch document: %w", err)
		}
	}
	if len(raw) > MaxPDFBytes {
		return nil, fmt.Errorf("%w: document is %d bytes, limit is %d", ErrSizeLimitExceeded, len(raw), MaxPDFBytes)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable pdf: %v", ErrExtractionFailure, err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: pdf text extraction failed: %v", ErrExtractionFailure, err)
	}
	textBytes, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("%w: pdf text extraction failed: %v", ErrExtractionFailure, err)
	}

	text := strings.TrimSpace(string(textBytes))
	if text == "" {
		return nil, fmt.Errorf("%w: document %s contains no extractable text", ErrExtractionFailure, payload.Filename)
	}

	return &ExtractedContent{
		Text: text,
		Metadata: SourceMetadata{
			Title:        payload.Filename,
			URL:          payload.FileURL,
			TimestampISO: time.Now().UTC().Format(time.RFC3339),
			WordCount:    countWords(text),
			SourceType:   SourcePDF,
		},
		Citations: []outline.Citation{
			{Title: payload.Filename, URL: payload.FileURL},
		},
	}, nil
}

func (c *PDFConnector) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, fileURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxPDFBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxPDFBytes {
		return nil, fmt.Errorf("%w: remote document exceeds %d bytes", ErrSizeLimitExceeded, MaxPDFBytes)
	}
	return raw, nil
}
