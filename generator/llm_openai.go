package generator

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat
// completions). It also serves Azure OpenAI and OpenAI-compatible gateways.
type OpenAILLM struct {
	Provider    string
	Model       string
	Temperature *float64
	Timeout     time.Duration
	Opts        []option.RequestOption
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide api_key or api_key_env")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	var opts []option.RequestOption
	switch cfg.Provider {
	case "azure":
		if cfg.BaseURL == "" || cfg.APIVersion == "" {
			return nil, errors.New("azure provider requires base_url and api_version")
		}
		opts = append(opts, azure.WithEndpoint(cfg.BaseURL, cfg.APIVersion), azure.WithAPIKey(cfg.APIKey))
	case "deepseek":
		// DeepSeek exposes an OpenAI-compatible API; base_url is mandatory.
		if cfg.BaseURL == "" {
			return nil, errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey), option.WithBaseURL(cfg.BaseURL))
	default:
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}
	opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	return &OpenAILLM{
		Provider:    provider,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Opts:        opts,
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client := openai.NewClient(o.Opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	}
	if o.Temperature != nil {
		params.Temperature = openai.Float(*o.Temperature)
	}

	ctx, cancel := withCallTimeout(ctx, o.Timeout)
	defer cancel()
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", Classify(o.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", Classify(o.Provider, errors.New("openai: empty choices"))
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", Classify(o.Provider, ErrContentFiltered)
	}
	return choice.Message.Content, nil
}
