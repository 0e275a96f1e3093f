package embedding

import "context"

// Task types passed to providers that distinguish indexing from lookup.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

// Provider defines the interface for generating text embeddings.
type Provider interface {
	// Generate returns a unit-length embedding vector for the text.
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}
