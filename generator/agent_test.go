package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_report_generator/config"
)

func newTestAgent(t *testing.T, clients map[string]LLMClient, search Searcher, opts Options) *Agent {
	t.Helper()
	if search == nil {
		search = &staticSearcher{result: "result"}
	}
	a, err := NewAgent(RegistryFromClients(clients), search, opts)
	require.NoError(t, err)
	return a
}

func TestNewAgentValidates(t *testing.T) {
	_, err := NewAgent(nil, &staticSearcher{}, Options{})
	assert.Error(t, err)
	_, err = NewAgent(RegistryFromClients(nil), &staticSearcher{}, Options{})
	assert.Error(t, err)
	_, err = NewAgent(RegistryFromClients(map[string]LLMClient{config.RoleWriter: &scriptedLLM{}}), nil, Options{})
	assert.Error(t, err)
}

func TestPlanTruncatesToHardMax(t *testing.T) {
	var lines []string
	for i := 1; i <= 25; i++ {
		lines = append(lines, fmt.Sprintf("Chapter title %d", i))
	}
	planner := &scriptedLLM{responses: []scriptedResponse{{text: strings.Join(lines, "\n")}}}
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: &scriptedLLM{}, config.RolePlanner: planner}, nil, Options{})

	titles, err := a.Plan(context.Background(), "EV market", "")
	require.NoError(t, err)
	require.Len(t, titles, 20)
	assert.Equal(t, "Chapter title 1", titles[0])
	assert.Equal(t, "Chapter title 20", titles[19])

	require.Len(t, planner.prompts, 1)
	assert.Equal(t, StagePlan, planner.prompts[0].Stage)
	assert.Contains(t, planner.prompts[0].System, "Maximum 15 chapters")
}

func TestPlanBoundsContext(t *testing.T) {
	planner := &scriptedLLM{responses: []scriptedResponse{{text: "One"}}}
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: planner}, nil, Options{PlanContext: 10})

	_, err := a.Plan(context.Background(), "topic", strings.Repeat("x", 50))
	require.NoError(t, err)
	assert.Contains(t, planner.prompts[0].User, "Context: "+strings.Repeat("x", 10))
	assert.NotContains(t, planner.prompts[0].User, strings.Repeat("x", 11))
}

func TestPlanBoundsContextInCharacters(t *testing.T) {
	planner := &scriptedLLM{responses: []scriptedResponse{{text: "One"}}}
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: planner}, nil, Options{PlanContext: 10})

	_, err := a.Plan(context.Background(), "topic", strings.Repeat("ü", 50))
	require.NoError(t, err)
	assert.Contains(t, planner.prompts[0].User, "Context: "+strings.Repeat("ü", 10))
	assert.NotContains(t, planner.prompts[0].User, strings.Repeat("ü", 11))
}

func TestPlanFailures(t *testing.T) {
	empty := &scriptedLLM{responses: []scriptedResponse{{text: "\n  \n"}}}
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: empty}, nil, Options{})
	_, err := a.Plan(context.Background(), "topic", "")
	var planErr *PlanningError
	require.ErrorAs(t, err, &planErr)
	assert.ErrorIs(t, err, ErrNoTitles)

	broken := &scriptedLLM{responses: []scriptedResponse{{err: &GenerationError{Kind: KindTransport, Provider: "x", Err: errors.New("down")}}}}
	a = newTestAgent(t, map[string]LLMClient{config.RoleWriter: broken}, nil, Options{})
	_, err = a.Plan(context.Background(), "topic", "")
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestResearchQueryPolicy(t *testing.T) {
	now := time.Date(2025, time.December, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Battery Costs statistics facts news data December 2025", ResearchQuery("Battery Costs", now))

	search := &staticSearcher{result: "notes"}
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: &scriptedLLM{}}, search, Options{Now: func() time.Time { return now }})
	notes, err := a.Research(context.Background(), "Battery Costs")
	require.NoError(t, err)
	assert.Equal(t, "notes", notes)
	assert.Equal(t, []string{"Battery Costs statistics facts news data December 2025"}, search.queries)
}

func TestResearchNoResultsIsNotAnError(t *testing.T) {
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: &scriptedLLM{}}, &staticSearcher{result: NoResults}, Options{Synthesize: true})
	notes, err := a.Research(context.Background(), "Anything")
	require.NoError(t, err)
	assert.Equal(t, NoResults, notes)
}

func TestResearchSynthesis(t *testing.T) {
	researcher := &scriptedLLM{responses: []scriptedResponse{{text: "condensed"}}}
	clients := map[string]LLMClient{config.RoleWriter: &scriptedLLM{}, config.RoleResearcher: researcher}
	a := newTestAgent(t, clients, &staticSearcher{result: "raw"}, Options{Synthesize: true})

	notes, err := a.Research(context.Background(), "Chapter")
	require.NoError(t, err)
	assert.Equal(t, "condensed", notes)

	researcher.responses = []scriptedResponse{{err: &GenerationError{Kind: KindContentPolicy, Provider: "x", Err: errors.New("filtered")}}}
	notes, err = a.Research(context.Background(), "Chapter")
	require.NoError(t, err)
	assert.Equal(t, "raw", notes)

	researcher.responses = []scriptedResponse{{err: &GenerationError{Kind: KindTransport, Provider: "x", Err: errors.New("down")}}}
	_, err = a.Research(context.Background(), "Chapter")
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestResearchCanceled(t *testing.T) {
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: &scriptedLLM{}}, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Research(ctx, "Chapter")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDraftAndReviewUseTheirRoles(t *testing.T) {
	writer := &scriptedLLM{responses: []scriptedResponse{{text: "draft body"}}}
	reviewer := &scriptedLLM{responses: []scriptedResponse{{text: "reviewed body"}}}
	a := newTestAgent(t, map[string]LLMClient{config.RoleWriter: writer, config.RoleReviewer: reviewer}, nil, Options{DraftContext: 5})

	body, err := a.Draft(context.Background(), DraftInput{Title: "T", Notes: "N", Context: "0123456789"})
	require.NoError(t, err)
	assert.Equal(t, "draft body", body)
	assert.Contains(t, writer.prompts[0].User, "Uploaded Doc Context: 01234")
	assert.NotContains(t, writer.prompts[0].User, "012345")

	body, err = a.Review(context.Background(), "T", "draft body")
	require.NoError(t, err)
	assert.Equal(t, "reviewed body", body)
	assert.Equal(t, StageReview, reviewer.prompts[0].Stage)
}

func TestPlaceholderNamesChapter(t *testing.T) {
	p := Placeholder("Charging Infrastructure")
	assert.Contains(t, p, "Charging Infrastructure")
	assert.Contains(t, p, "Content generation skipped")
	assert.Equal(t, p, Placeholder("Charging Infrastructure"))
}

func TestMockLLMPlan(t *testing.T) {
	out, err := MockLLM{}.Complete(context.Background(), BuildPlanPrompt("t", "", 15))
	require.NoError(t, err)
	assert.Len(t, ParseOutline(out, 20), 3)
}
