package connector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(Config{})

	for _, sourceType := range []string{SourceText, SourceYouTube, SourcePDF, SourceWeb, SourceWebSearch} {
		c, err := registry.Get(sourceType)
		require.NoError(t, err, sourceType)
		assert.NotNil(t, c)
	}

	_, err := registry.Get("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestTextConnectorValidate(t *testing.T) {
	c := NewTextConnector()

	assert.NoError(t, c.Validate(RawPayload{Text: "hello world"}))

	err := c.Validate(RawPayload{Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	err = c.Validate(RawPayload{Text: strings.Repeat("x", MaxTextBytes+1)})
	assert.ErrorIs(t, err, ErrSizeLimitExceeded)
}

func TestTextConnectorExtract(t *testing.T) {
	c := NewTextConnector()

	content, err := c.Extract(context.Background(), RawPayload{Text: "one two three", Title: "Notes"})
	require.NoError(t, err)

	assert.Equal(t, "one two three", content.Text)
	assert.Equal(t, "Notes", content.Metadata.Title)
	assert.Equal(t, 3, content.Metadata.WordCount)
	assert.Equal(t, SourceText, content.Metadata.SourceType)
	require.Len(t, content.Citations, 1)
	assert.Equal(t, "Notes", content.Citations[0].Title)
}

func TestTextConnectorDefaultTitle(t *testing.T) {
	c := NewTextConnector()

	content, err := c.Extract(context.Background(), RawPayload{Text: "untitled body"})
	require.NoError(t, err)
	assert.Equal(t, "Pasted Text", content.Metadata.Title)
}

func TestYouTubeConnectorValidate(t *testing.T) {
	c := NewYouTubeConnector()

	assert.NoError(t, c.Validate(RawPayload{VideoID: "dQw4w9WgXcQ"}))
	assert.ErrorIs(t, c.Validate(RawPayload{}), ErrInvalidPayload)
	assert.ErrorIs(t, c.Validate(RawPayload{VideoID: "x", URL: "::not-a-url"}), ErrInvalidPayload)
}

func TestPDFConnectorValidate(t *testing.T) {
	c := NewPDFConnector()

	assert.NoError(t, c.Validate(RawPayload{Filename: "doc.pdf", FileBuffer: []byte("%PDF-1.4")}))
	assert.ErrorIs(t, c.Validate(RawPayload{FileBuffer: []byte("x")}), ErrInvalidPayload)
	assert.ErrorIs(t, c.Validate(RawPayload{Filename: "doc.pdf"}), ErrInvalidPayload)

	huge := make([]byte, MaxPDFBytes+1)
	assert.ErrorIs(t, c.Validate(RawPayload{Filename: "doc.pdf", FileBuffer: huge}), ErrSizeLimitExceeded)
}

func TestWebConnectorValidate(t *testing.T) {
	c := NewWebConnector()

	assert.NoError(t, c.Validate(RawPayload{URL: "https://example.com/article"}))
	assert.ErrorIs(t, c.Validate(RawPayload{}), ErrInvalidPayload)
	assert.ErrorIs(t, c.Validate(RawPayload{URL: "ftp://example.com"}), ErrInvalidPayload)
}

func TestWebConnectorExtract(t *testing.T) {
	page := `<html><head><title>Test Page</title><style>.x{}</style></head>
	<body><nav>Menu Home About</nav><script>var x = 1;</script>
	<article><p>First paragraph of content.</p><p>Second paragraph.</p></article>
	<footer>All rights reserved</footer></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	c := NewWebConnector()
	content, err := c.Extract(context.Background(), RawPayload{URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, "Test Page", content.Metadata.Title)
	assert.Contains(t, content.Text, "First paragraph of content.")
	assert.Contains(t, content.Text, "Second paragraph.")
	assert.NotContains(t, content.Text, "var x")
	assert.NotContains(t, content.Text, "Menu Home")
	assert.NotContains(t, content.Text, "rights reserved")
	require.Len(t, content.Citations, 1)
	assert.Equal(t, server.URL, content.Citations[0].URL)
}

func TestWebSearchConnectorValidate(t *testing.T) {
	c := NewWebSearchConnector(Config{SerperKey: "k"})

	assert.NoError(t, c.Validate(RawPayload{Query: "golang concurrency"}))
	assert.ErrorIs(t, c.Validate(RawPayload{Query: " "}), ErrInvalidPayload)
	assert.ErrorIs(t, c.Validate(RawPayload{Query: "q", MaxResults: 11}), ErrInvalidPayload)
}

func TestWebSearchConnectorNotConfigured(t *testing.T) {
	c := NewWebSearchConnector(Config{})

	_, err := c.Extract(context.Background(), RawPayload{Query: "anything"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestWebSearchBackendOrder(t *testing.T) {
	c := NewWebSearchConnector(Config{TavilyKey: "t", BraveKey: "b"})
	assert.Equal(t, "tavily", c.pickBackend().name())

	c = NewWebSearchConnector(Config{SerperKey: "s", BraveKey: "b"})
	assert.Equal(t, "serper", c.pickBackend().name())

	c = NewWebSearchConnector(Config{BraveKey: "b"})
	assert.Equal(t, "brave", c.pickBackend().name())
}

func TestWithRetrySucceedsWithoutRetrying(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, func() error {
		calls++
		return errors.New("remote down")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
