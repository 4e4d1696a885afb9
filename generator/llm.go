package generator

import (
	"context"
	"time"
)

// LLMClient abstracts one text-generation backend so roles can be swapped
// or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the adapter-level configuration shared by every provider.
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	APIVersion  string
	Temperature *float64
	Timeout     time.Duration
	MaxRetries  int
}

// withCallTimeout bounds a single generation call. A zero timeout keeps
// whatever deadline ctx already carries.
func withCallTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
