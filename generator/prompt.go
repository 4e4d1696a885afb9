package generator

import (
	"fmt"
	"strings"
)

// Stage names carried on prompts, used for logging and by MockLLM.
const (
	StagePlan     = "plan"
	StageResearch = "research"
	StageDraft    = "draft"
	StageReview   = "review"
)

// Prompt is the message set sent to an LLM.
type Prompt struct {
	Stage   string
	System  string
	User    string
	History []Message
}

// Message is an optional history entry.
type Message struct {
	Role    string
	Content string
}

// BuildPlanPrompt asks for a multi-chapter outline, one title per line.
func BuildPlanPrompt(topic, context string, maxChapters int) Prompt {
	var sb strings.Builder
	sb.WriteString("You are an expert Editor. Create a comprehensive, multi-chapter outline for a professional report on the topic below.\n")
	sb.WriteString("Return ONLY the list of chapter titles, one per line, without numbering or commentary.\n")
	sb.WriteString(fmt.Sprintf("Maximum %d chapters.\n", maxChapters))

	user := fmt.Sprintf("Topic: %s\n\nContext: %s", topic, context)
	return Prompt{Stage: StagePlan, System: sb.String(), User: user}
}

// BuildSynthesisPrompt asks the researcher to condense raw search results
// into notes for one chapter.
func BuildSynthesisPrompt(chapter, results string) Prompt {
	system := "You are a research analyst. Condense the search results into factual bullet-point notes for the chapter. " +
		"Keep figures, dates and source URLs. Do not invent data that is not in the results."
	user := fmt.Sprintf("Chapter Title: %s\n\nSearch Results:\n%s", chapter, results)
	return Prompt{Stage: StageResearch, System: system, User: user}
}

// BuildDraftPrompt produces the chapter writing prompt.
func BuildDraftPrompt(in DraftInput) Prompt {
	system := "You are a professional technical writer. Write a detailed, factual chapter (approx 1000 words). " +
		"Use the provided research notes and prefer the most recent data available. Output Markdown without a top-level title."
	user := fmt.Sprintf("Chapter Title: %s\n\nResearch Notes: %s\n\nUploaded Doc Context: %s", in.Title, in.Notes, in.Context)
	return Prompt{Stage: StageDraft, System: system, User: user}
}

// BuildReviewPrompt asks the reviewer to fact-check and rewrite a draft.
func BuildReviewPrompt(title, draft string) Prompt {
	system := "You are a strict fact-checker. Review the draft. If it lacks data or has logic errors, correct them and rewrite the section. " +
		"Ensure a professional tone. Return only the final chapter text."
	user := fmt.Sprintf("Chapter Title: %s\n\nDraft: %s", title, draft)
	return Prompt{Stage: StageReview, System: system, User: user}
}
