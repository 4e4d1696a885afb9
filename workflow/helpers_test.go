package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"auto_report_generator/generator"
)

// fakeCaps scripts each role. Unset hooks answer deterministically from
// their inputs.
type fakeCaps struct {
	mu       sync.Mutex
	outline  []string
	planErr  error
	research func(ctx context.Context, title string) (string, error)
	draft    func(call int, in generator.DraftInput) (string, error)
	review   func(call int, title, draft string) (string, error)

	draftInputs  []generator.DraftInput
	reviewInputs []string
}

func (f *fakeCaps) Plan(context.Context, string, string) ([]string, error) {
	return f.outline, f.planErr
}

func (f *fakeCaps) Research(ctx context.Context, title string) (string, error) {
	if f.research != nil {
		return f.research(ctx, title)
	}
	return "notes for " + title, nil
}

func (f *fakeCaps) Draft(_ context.Context, in generator.DraftInput) (string, error) {
	f.mu.Lock()
	f.draftInputs = append(f.draftInputs, in)
	call := len(f.draftInputs)
	f.mu.Unlock()
	if f.draft != nil {
		return f.draft(call, in)
	}
	return "draft of " + in.Title, nil
}

func (f *fakeCaps) Review(_ context.Context, title, draft string) (string, error) {
	f.mu.Lock()
	f.reviewInputs = append(f.reviewInputs, draft)
	call := len(f.reviewInputs)
	f.mu.Unlock()
	if f.review != nil {
		return f.review(call, title, draft)
	}
	return "reviewed " + draft, nil
}

func policyErr() error {
	return &generator.GenerationError{Kind: generator.KindContentPolicy, Provider: "azure", Err: errors.New("content_filter")}
}

func transportErr() error {
	return &generator.GenerationError{Kind: generator.KindTransport, Provider: "azure", Err: errors.New("connection reset")}
}

func countSections(doc string) int {
	return strings.Count(doc, "\n\n## ")
}

func expectedDocument(titles, bodies []string) string {
	var sb strings.Builder
	for i := range titles {
		sb.WriteString(SectionHeading(titles[i]))
		sb.WriteString(bodies[i])
	}
	return sb.String()
}

func titles(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Chapter %d", i+1)
	}
	return out
}
