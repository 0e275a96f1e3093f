package llm

import (
	"context"
)

// Option allows for optional generation parameters like Temperature,
// MaxTokens, a system prompt, or a model override.
type Option func(*Options)

type Options struct {
	SystemPrompt string
	Model        string // Override default model
	MaxTokens    int
	Temperature  float64
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// GenerationResult is the provider-agnostic response shape. TokensUsed is
// taken from the backend's usage accounting when available, otherwise 0.
type GenerationResult struct {
	Content    string
	TokensUsed int
	Provider   string
	Model      string
}

// Provider defines the contract for any LLM backend. Adapters are
// interchangeable; the engine selects one by provider name.
type Provider interface {
	// Name returns the provider tag used for selection and audit records.
	Name() string

	// ValidateKey cheaply checks whether a key has the expected shape.
	// It does not call the backend.
	ValidateKey(key string) bool

	// GenerateResponse sends a user prompt (plus optional system prompt)
	// to the model and returns the response with token accounting.
	GenerateResponse(ctx context.Context, userPrompt string, options ...Option) (*GenerationResult, error)
}

// ApplyOptions folds a list of options over defaults. Shared by the
// concrete adapters.
func ApplyOptions(defaults Options, options []Option) Options {
	opts := defaults
	for _, o := range options {
		o(&opts)
	}
	return opts
}
