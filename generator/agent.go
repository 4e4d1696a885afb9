package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"auto_report_generator/config"
)

// Searcher is the web-research capability. It never fails: unavailability
// comes back as explanatory text.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// NoResults is what a Searcher returns when the query matched nothing.
const NoResults = "No results found"

// Options tunes the role operations; zero values take config defaults.
type Options struct {
	RequestedMax int
	HardMax      int
	PlanContext  int
	DraftContext int
	Synthesize   bool
	Now          func() time.Time
	Logger       *slog.Logger
}

// DraftInput is everything the drafting call sees.
type DraftInput struct {
	Title   string
	Notes   string
	Context string
}

// Agent runs the four roles (plan, research, draft, review) against the
// clients in a Registry. Each method is a single attempt; retry policy
// belongs to the caller.
type Agent struct {
	registry *Registry
	search   Searcher
	opts     Options
	logger   *slog.Logger
}

func NewAgent(registry *Registry, search Searcher, opts Options) (*Agent, error) {
	if registry == nil {
		return nil, errors.New("role registry is required")
	}
	if _, ok := registry.Client(config.RoleWriter); !ok {
		return nil, errors.New("registry has no writer")
	}
	if search == nil {
		return nil, errors.New("searcher is required")
	}
	if opts.RequestedMax <= 0 {
		opts.RequestedMax = config.DefaultRequestedMax
	}
	if opts.HardMax <= 0 {
		opts.HardMax = config.DefaultHardMax
	}
	if opts.PlanContext <= 0 {
		opts.PlanContext = config.DefaultPlanContext
	}
	if opts.DraftContext <= 0 {
		opts.DraftContext = config.DefaultDraftContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{registry: registry, search: search, opts: opts, logger: logger.With("component", "agent")}, nil
}

// Plan asks the planner for an outline and enforces the hard ceiling
// independently of what the prompt requested.
func (a *Agent) Plan(ctx context.Context, topic, uploadedContext string) ([]string, error) {
	client, ok := a.registry.Client(config.RolePlanner)
	if !ok {
		return nil, &PlanningError{Err: errors.New("no planner bound")}
	}
	prompt := BuildPlanPrompt(topic, Truncate(uploadedContext, a.opts.PlanContext), a.opts.RequestedMax)
	raw, err := client.Complete(ctx, prompt)
	if err != nil {
		return nil, &PlanningError{Err: err}
	}
	titles := ParseOutline(raw, 0)
	if len(titles) > a.opts.HardMax {
		a.logger.Warn("outline exceeds hard limit, truncating", "generated", len(titles), "limit", a.opts.HardMax)
		titles = titles[:a.opts.HardMax]
	}
	if len(titles) == 0 {
		return nil, &PlanningError{Err: ErrNoTitles}
	}
	a.logger.Info("outline generated", "chapters", len(titles))
	return titles, nil
}

// ResearchQuery is the constant query policy of the research stage: the
// chapter title plus a fact-seeking suffix and the current month.
func ResearchQuery(title string, now time.Time) string {
	return fmt.Sprintf("%s statistics facts news data %s", title, now.Format("January 2006"))
}

// Research gathers notes for one chapter. Missing search results are not an
// error; only transport failures of the optional synthesis call and
// cancellation propagate.
func (a *Agent) Research(ctx context.Context, title string) (string, error) {
	notes := a.search.Search(ctx, ResearchQuery(title, a.opts.Now()))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.logger.Debug("research data retrieved", "chapter", title, "chars", len(notes))
	if !a.opts.Synthesize || strings.TrimSpace(notes) == NoResults {
		return notes, nil
	}
	client, ok := a.registry.Client(config.RoleResearcher)
	if !ok {
		return notes, nil
	}
	summary, err := client.Complete(ctx, BuildSynthesisPrompt(title, notes))
	if err != nil {
		if KindOf(err) == KindTransport {
			return "", err
		}
		a.logger.Warn("research synthesis failed, using raw results", "chapter", title, "error", err)
		return notes, nil
	}
	return summary, nil
}

// Draft makes a single drafting call.
func (a *Agent) Draft(ctx context.Context, in DraftInput) (string, error) {
	client, _ := a.registry.Client(config.RoleWriter)
	in.Context = Truncate(in.Context, a.opts.DraftContext)
	return client.Complete(ctx, BuildDraftPrompt(in))
}

// Review makes a single reviewer call.
func (a *Agent) Review(ctx context.Context, title, draft string) (string, error) {
	client, ok := a.registry.Client(config.RoleReviewer)
	if !ok {
		client, _ = a.registry.Client(config.RoleWriter)
	}
	return client.Complete(ctx, BuildReviewPrompt(title, draft))
}

// Placeholder is the deterministic body used when a chapter could not be
// drafted even after sanitizing.
func Placeholder(title string) string {
	return fmt.Sprintf("[Content generation skipped due to content policy restrictions. Please review this chapter manually.]\n\n"+
		"This chapter focuses on %s. Due to automated content filtering, detailed content could not be generated. "+
		"Please refer to official sources and documentation for comprehensive information on this topic.", title)
}
