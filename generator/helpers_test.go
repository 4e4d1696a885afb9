package generator

import (
	"context"
	"sync"
)

// scriptedLLM answers with queued responses and records every prompt.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []scriptedResponse
	prompts   []Prompt
}

type scriptedResponse struct {
	text string
	err  error
}

func (s *scriptedLLM) Complete(_ context.Context, p Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	if len(s.responses) == 0 {
		return "ok", nil
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r.text, r.err
}

type staticSearcher struct {
	result  string
	queries []string
}

func (s *staticSearcher) Search(_ context.Context, query string) string {
	s.queries = append(s.queries, query)
	return s.result
}
