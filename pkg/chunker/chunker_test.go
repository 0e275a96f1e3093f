package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "crlf to lf",
			input: "line one\r\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "tabs become single space",
			input: "a\tb\t\tc",
			want:  "a b c",
		},
		{
			name:  "space runs collapse",
			input: "too    many     spaces",
			want:  "too many spaces",
		},
		{
			name:  "max two consecutive newlines",
			input: "para one\n\n\n\n\npara two",
			want:  "para one\n\npara two",
		},
		{
			name:  "trimmed",
			input: "   padded   ",
			want:  "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWhitespace(tt.input))
		})
	}
}

func TestRemoveBoilerplate(t *testing.T) {
	input := "Real content here. We Use Cookies to improve your experience. More content. All Rights Reserved"
	got := RemoveBoilerplate(input)
	assert.NotContains(t, strings.ToLower(got), "cookies")
	assert.NotContains(t, strings.ToLower(got), "rights reserved")
	assert.Contains(t, got, "Real content here.")
	assert.Contains(t, got, "More content.")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestContentHashDeterminism(t *testing.T) {
	a := ContentHash("the same input")
	b := ContentHash("the same input")
	c := ContentHash("a different input")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestChunkTextSingleChunk(t *testing.T) {
	chunks := ChunkText("A short sentence.", Options{SourceType: "text"})

	require.Len(t, chunks, 1)
	assert.Equal(t, "A short sentence.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkIndex)
	assert.Equal(t, 1, chunks[0].Metadata.TotalChunks)
	assert.Equal(t, "text", chunks[0].Metadata.SourceType)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestChunkTextIndexContiguity(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This is sentence number with some padding words inside it. ")
	}

	chunks := ChunkText(b.String(), Options{MaxChunkSize: 300, Overlap: 50, SourceType: "text"})
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.Equal(t, len(chunks), c.Metadata.TotalChunks)
		assert.Positive(t, c.TokensEstimate)
	}
}

// With overlap disabled, concatenating the chunks reconstructs the
// normalized input. Chunking is lossless for content, lossy only in
// exact whitespace at boundaries.
func TestChunkTextLosslessWithoutOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Sentence padding words to fill chunks quickly and evenly here. ")
	}
	input := b.String()
	normalized := NormalizeWhitespace(input)

	chunks := ChunkText(input, Options{MaxChunkSize: 250, Overlap: 0})
	require.Greater(t, len(chunks), 1)

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	assert.Equal(t, normalized, strings.Join(parts, " "))
}

func TestChunkTextOverlapCarriesContext(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Sentence padding words to fill chunks quickly and evenly here. ")
	}

	chunks := ChunkText(b.String(), Options{MaxChunkSize: 250, Overlap: 80})
	require.Greater(t, len(chunks), 1)

	// Every chunk after the first starts with text already present at the
	// end of the previous one.
	for i := 1; i < len(chunks); i++ {
		firstWords := strings.Join(strings.Fields(chunks[i].Text)[:3], " ")
		assert.Contains(t, chunks[i-1].Text, firstWords, "chunk %d should start inside chunk %d's tail", i, i-1)
	}
}

func TestChunkTextOversizedSentenceFallsBackToWords(t *testing.T) {
	// One long "sentence" with no terminators at all.
	input := strings.Repeat("word ", 500)

	chunks := ChunkText(input, Options{MaxChunkSize: 100, Overlap: 0})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 100)
		assert.False(t, strings.HasPrefix(c.Text, " "))
		assert.False(t, strings.HasSuffix(c.Text, " "))
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	assert.Nil(t, ChunkText("", Options{}))
	assert.Nil(t, ChunkText("   \n\n  ", Options{}))
}

func TestSummarize(t *testing.T) {
	short := "A handful of words only."
	assert.Equal(t, short, Summarize(short, 100))

	long := strings.TrimSpace(strings.Repeat("word ", 150))
	got := Summarize(long, 100)
	require.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, strings.Fields(got), 100)

	assert.Equal(t, "", Summarize("", 100))
}
