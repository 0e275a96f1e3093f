package factory

import (
	"fmt"

	"ai-mindmap-be/pkg/llm"
	"ai-mindmap-be/pkg/llm/gemini"
	"ai-mindmap-be/pkg/llm/openai"
)

// Config carries the per-provider settings the factory needs. Keys may be
// server-level defaults or user-level keys resolved by the secrets
// service.
type Config struct {
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	Model         string
}

// NewProvider selects an adapter by name. Unknown names are an error,
// never a silent default.
func NewProvider(providerType string, cfg Config) (llm.Provider, error) {
	switch providerType {
	case "openai":
		return openai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case "gemini":
		return gemini.NewGeminiProvider(cfg.GeminiKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", providerType)
	}
}

// ValidateKey runs the named provider's key format check. An unknown
// provider is an error, a malformed key returns false.
func ValidateKey(providerType, key string) (bool, error) {
	cfg := Config{}
	switch providerType {
	case "openai":
		cfg.OpenAIKey = key
	case "gemini":
		cfg.GeminiKey = key
	}
	provider, err := NewProvider(providerType, cfg)
	if err != nil {
		return false, err
	}
	return provider.ValidateKey(key), nil
}
