package llm

import "fmt"

// NewProvider creates the OpenAI-backed stream provider, optionally rate
// limited. rpm <= 0 disables limiting.
func NewProvider(apiKey, model string, rpm int) (StreamProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not configured")
	}
	provider := NewOpenAIProvider(apiKey, model)
	if rpm > 0 {
		return NewRateLimitedProvider(provider, rpm), nil
	}
	return provider, nil
}
