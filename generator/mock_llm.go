package generator

import (
	"context"
	"strings"
)

// MockLLM is an offline stand-in for local runs; it never calls a model.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if prompt.Stage == StagePlan {
		return "Introduction\nCurrent Landscape\nOutlook", nil
	}
	var sb strings.Builder
	sb.WriteString("This section was produced by the offline mock model.\n\n")
	sb.WriteString("```\n")
	sb.WriteString(firstLine(prompt.User))
	sb.WriteString("\n```\n")
	return sb.String(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
