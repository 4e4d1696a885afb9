package generator

import (
	"fmt"

	"auto_report_generator/config"
)

// NewClient is the default Factory: it picks the adapter for the entry's
// provider.
func NewClient(name string, m config.ModelConfig) (LLMClient, error) {
	settings := &LLMSettings{
		Provider:    m.Provider,
		Model:       m.Model,
		APIKey:      m.APIKey,
		BaseURL:     m.BaseURL,
		APIVersion:  m.APIVersion,
		Temperature: m.Temperature,
		Timeout:     m.Timeout,
	}
	if m.MaxRetries != nil {
		settings.MaxRetries = *m.MaxRetries
	}
	switch m.Provider {
	case "openai", "azure", "deepseek":
		return NewOpenAILLMFromConfig(settings)
	case "ollama":
		return NewOllamaLLM(settings)
	case "anthropic":
		return NewAnthropicLLM(settings)
	case "mock":
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("model %s: llm provider %q not supported", name, m.Provider)
	}
}
