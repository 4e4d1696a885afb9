package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

const defaultOllamaURL = "http://localhost:11434"

// LangchainLLM implements LLMClient on top of any langchaingo model. It is
// used for the local Ollama planner and the Anthropic reviewer.
type LangchainLLM struct {
	Provider    string
	Model       llms.Model
	Temperature *float64
	Timeout     time.Duration
}

// NewOllamaLLM connects to a local Ollama server.
func NewOllamaLLM(cfg *LLMSettings) (*LangchainLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("ollama model is required")
	}
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}
	model, err := ollama.New(ollama.WithServerURL(serverURL), ollama.WithModel(cfg.Model))
	if err != nil {
		return nil, Classify("ollama", err)
	}
	return &LangchainLLM{Provider: "ollama", Model: model, Temperature: cfg.Temperature, Timeout: cfg.Timeout}, nil
}

// NewAnthropicLLM builds a Claude client through langchaingo.
func NewAnthropicLLM(cfg *LLMSettings) (*LangchainLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key missing; provide api_key or api_key_env")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic model is required")
	}
	opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, Classify("anthropic", err)
	}
	return &LangchainLLM{Provider: "anthropic", Model: model, Temperature: cfg.Temperature, Timeout: cfg.Timeout}, nil
}

func (l *LangchainLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	msgs := []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeSystem, prompt.System)}
	for _, h := range prompt.History {
		role := schema.ChatMessageTypeHuman
		if h.Role == "assistant" {
			role = schema.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, h.Content))
	}
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, prompt.User))

	var opts []llms.CallOption
	if l.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*l.Temperature))
	}

	ctx, cancel := withCallTimeout(ctx, l.Timeout)
	defer cancel()
	resp, err := l.Model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return "", Classify(l.Provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", Classify(l.Provider, fmt.Errorf("%s: empty choices", l.Provider))
	}
	choice := resp.Choices[0]
	if hasMarker(choice.StopReason, contentPolicyMarkers) || choice.StopReason == "refusal" {
		return "", Classify(l.Provider, ErrContentFiltered)
	}
	return choice.Content, nil
}
