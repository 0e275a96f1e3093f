// Package connector normalizes heterogeneous external sources (pasted
// text, video transcripts, documents, web pages, web-search aggregates)
// into extracted text with metadata and citations.
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-mindmap-be/pkg/outline"
)

// Source type tags. These are the wire values accepted by the ingestion
// API.
const (
	SourceText      = "text"
	SourceYouTube   = "youtube"
	SourcePDF       = "pdf"
	SourceWeb       = "web"
	SourceWebSearch = "websearch"
)

// Per-source input size limits in bytes, enforced before extraction.
const (
	MaxTextBytes       = 1 << 20  // 1 MiB
	MaxPDFBytes        = 10 << 20 // 10 MiB
	MaxWebBytes        = 5 << 20  // 5 MiB
	MaxTranscriptBytes = 2 << 20  // 2 MiB
	MaxSearchBytes     = 5 << 20  // 5 MiB
)

// Sentinel error kinds. Callers classify with errors.Is.
var (
	ErrUnsupportedSource = errors.New("unsupported source type")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrSizeLimitExceeded = errors.New("size limit exceeded")
	ErrExtractionFailure = errors.New("extraction produced no usable content")
	ErrNotConfigured     = errors.New("no search backend configured")
)

// RawPayload is the caller-supplied raw input. Which fields matter
// depends on the source type; each connector validates its own shape.
type RawPayload struct {
	// text
	Text  string `json:"text,omitempty"`
	Title string `json:"title,omitempty"`

	// youtube
	URL     string `json:"url,omitempty"`
	VideoID string `json:"videoId,omitempty"`

	// pdf
	Filename   string `json:"filename,omitempty"`
	FileURL    string `json:"fileUrl,omitempty"`
	FileBuffer []byte `json:"fileBuffer,omitempty"`

	// websearch
	Query      string `json:"query,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// SourceMetadata describes where extracted text came from.
type SourceMetadata struct {
	Title        string `json:"title,omitempty"`
	URL          string `json:"url,omitempty"`
	Author       string `json:"author,omitempty"`
	TimestampISO string `json:"timestampISO,omitempty"`
	WordCount    int    `json:"wordCount"`
	SourceType   string `json:"sourceType"`
}

// ExtractedContent is produced once per ingestion by exactly one
// connector and never mutated afterward.
type ExtractedContent struct {
	Text      string             `json:"text"`
	Metadata  SourceMetadata     `json:"metadata"`
	Citations []outline.Citation `json:"citations"`
}

// Connector converts one external source kind into normalized extracted
// text plus citations.
type Connector interface {
	// Validate is cheap and local: shape checks and size limits only, no
	// network I/O beyond URL parsing.
	Validate(payload RawPayload) error

	// Extract may fail with a source-specific error: unreachable remote,
	// oversized input, unsupported format, or an empty result.
	Extract(ctx context.Context, payload RawPayload) (*ExtractedContent, error)
}

// Registry is the lookup table of connectors keyed by source type. It is
// read-only after construction and safe for concurrent use.
type Registry struct {
	connectors map[string]Connector
}

// Config carries credentials and tuning shared by the network-calling
// connectors.
type Config struct {
	SerperKey string
	TavilyKey string
	BraveKey  string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		connectors: map[string]Connector{
			SourceText:      NewTextConnector(),
			SourceYouTube:   NewYouTubeConnector(),
			SourcePDF:       NewPDFConnector(),
			SourceWeb:       NewWebConnector(),
			SourceWebSearch: NewWebSearchConnector(cfg),
		},
	}
}

// Get returns the connector for a source type, or ErrUnsupportedSource.
func (r *Registry) Get(sourceType string) (Connector, error) {
	c, ok := r.connectors[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, sourceType)
	}
	return c, nil
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
