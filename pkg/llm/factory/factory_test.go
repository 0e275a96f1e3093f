package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderSelectsByName(t *testing.T) {
	cfg := Config{OpenAIKey: "sk-test", GeminiKey: "AIza-test"}

	p, err := NewProvider("openai", cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider("gemini", cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	_, err = NewProvider("claude", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		want     bool
		wantErr  bool
	}{
		{name: "openai well formed", provider: "openai", key: "sk-0123456789abcdefghij", want: true},
		{name: "openai wrong prefix", provider: "openai", key: "api-0123456789abcdefghij", want: false},
		{name: "openai too short", provider: "openai", key: "sk-short", want: false},
		{name: "gemini well formed", provider: "gemini", key: "AIzaSyA0123456789abcdefghijklmnopqr", want: true},
		{name: "gemini wrong prefix", provider: "gemini", key: "sk-0123456789abcdefghij", want: false},
		{name: "unknown provider", provider: "claude", key: "whatever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ValidateKey(tt.provider, tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
