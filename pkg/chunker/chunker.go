package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultMaxChunkSize = 1000
	DefaultOverlap      = 200
)

// Chunk is a bounded, overlap-aware slice of normalized text.
type Chunk struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	TokensEstimate int      `json:"tokensEstimate"`
	Metadata       Metadata `json:"metadata"`
}

type Metadata struct {
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	SourceType  string `json:"sourceType"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Author      string `json:"author,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type Options struct {
	MaxChunkSize int
	Overlap      int
	SourceType   string
	Title        string
	URL          string
	Author       string
	Timestamp    string
}

var (
	spaceRunRe   = regexp.MustCompile(` {2,}`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
	lineEdgeRe   = regexp.MustCompile(` *\n *`)

	// Common boilerplate found in scraped pages. Matched case-insensitively
	// against whole phrases, not words.
	boilerplateRe = regexp.MustCompile(`(?i)(accept all cookies|we use cookies[^.\n]*|this website uses cookies[^.\n]*|cookie policy|privacy policy|terms of service|all rights reserved|subscribe to our newsletter|sign up for our newsletter)`)
)

// NormalizeWhitespace flattens line endings and collapses runs of
// whitespace: CRLF to LF, tabs to a single space, multiple spaces to one,
// and no more than two consecutive newlines. The result is trimmed.
func NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineEdgeRe.ReplaceAllString(text, "\n")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// RemoveBoilerplate strips a small fixed set of boilerplate phrases
// (cookie banners, legal footers) before chunking.
func RemoveBoilerplate(text string) string {
	cleaned := boilerplateRe.ReplaceAllString(text, "")
	return NormalizeWhitespace(cleaned)
}

// EstimateTokens approximates token count as ceil(chars / 4).
// This is a documented approximation, not a real tokenizer.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Summarize returns the first maxWords words of the text. Truncation is
// marked with a trailing ellipsis; shorter texts come back unchanged.
func Summarize(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// ContentHash returns a deterministic sha256 hex digest of the text,
// used for duplicate detection across ingestion jobs.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkText splits normalized text into overlapping chunks. It splits on
// sentence boundaries first and falls back to word boundaries for
// sentences longer than MaxChunkSize. The tail of each chunk (up to
// Overlap characters, snapped back to a sentence or word boundary) is
// prepended to the next chunk to preserve cross-chunk context.
// ChunkIndex and TotalChunks are assigned after the full list is known.
func ChunkText(text string, opts Options) []Chunk {
	maxSize := opts.MaxChunkSize
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	overlap := opts.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 2
	}

	normalized := NormalizeWhitespace(text)
	if normalized == "" {
		return nil
	}

	var pieces []string
	for _, sentence := range splitSentences(normalized) {
		if utf8.RuneCountInString(sentence) > maxSize {
			pieces = append(pieces, splitWords(sentence, maxSize)...)
		} else {
			pieces = append(pieces, sentence)
		}
	}

	var texts []string
	var current strings.Builder
	currentLen := 0
	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen > 0 && currentLen+1+pieceLen > maxSize {
			texts = append(texts, current.String())
			tail := overlapTail(current.String(), overlap)
			current.Reset()
			currentLen = 0
			if tail != "" {
				current.WriteString(tail)
				currentLen = utf8.RuneCountInString(tail)
			}
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	if current.Len() > 0 {
		texts = append(texts, current.String())
	}

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{
			ID:             uuid.New().String(),
			Text:           t,
			TokensEstimate: EstimateTokens(t),
			Metadata: Metadata{
				ChunkIndex:  i,
				TotalChunks: len(texts),
				SourceType:  opts.SourceType,
				Title:       opts.Title,
				URL:         opts.URL,
				Author:      opts.Author,
				Timestamp:   opts.Timestamp,
			},
		}
	}
	return chunks
}

// splitSentences breaks text after '.', '!' or '?' followed by
// whitespace. Terminators stay attached to their sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			sentence := strings.TrimSpace(string(runes[start : i+1]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		rest := strings.TrimSpace(string(runes[start:]))
		if rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return sentences
}

// splitWords breaks an oversized sentence into word-boundary pieces no
// longer than maxSize. A single word longer than maxSize is hard-cut.
func splitWords(sentence string, maxSize int) []string {
	var pieces []string
	var current strings.Builder
	currentLen := 0
	for _, word := range strings.Fields(sentence) {
		wordLen := utf8.RuneCountInString(word)
		if wordLen > maxSize {
			if currentLen > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
				currentLen = 0
			}
			runes := []rune(word)
			for len(runes) > maxSize {
				pieces = append(pieces, string(runes[:maxSize]))
				runes = runes[maxSize:]
			}
			if len(runes) > 0 {
				current.WriteString(string(runes))
				currentLen = len(runes)
			}
			continue
		}
		if currentLen > 0 && currentLen+1+wordLen > maxSize {
			pieces = append(pieces, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// overlapTail returns up to `overlap` trailing characters of s, snapped
// back to a sentence boundary when one exists inside the window, else to
// a word boundary.
func overlapTail(s string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= overlap {
		return s
	}
	window := string(runes[len(runes)-overlap:])

	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.Index(window, sep); idx >= 0 {
			return strings.TrimSpace(window[idx+len(sep):])
		}
	}
	if idx := strings.Index(window, " "); idx >= 0 {
		return strings.TrimSpace(window[idx+1:])
	}
	return window
}
