package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"auto_report_generator/workflow"
)

var (
	stageStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	outcomeStyle = map[workflow.Outcome]lipgloss.Style{
		workflow.OutcomeCompleted: okStyle,
		workflow.OutcomePartial:   warnStyle,
		workflow.OutcomeFailed:    failStyle,
		workflow.OutcomeCanceled:  warnStyle,
	}
)

// progressPrinter renders workflow events as one styled line each.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) Notify(_ context.Context, ev workflow.Event) error {
	line := formatEvent(ev)
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, line)
	return err
}

func formatEvent(ev workflow.Event) string {
	tag := stageStyle.Render(fmt.Sprintf("%-9s", ev.Stage))
	chapter := fmt.Sprintf("[%d/%d]", ev.ChapterIndex+1, ev.ChapterCount)
	switch ev.Stage {
	case workflow.StagePlan:
		return fmt.Sprintf("%s outline generated: %d chapters", tag, ev.ChapterCount)
	case workflow.StageResearch:
		return fmt.Sprintf("%s %s %s", tag, chapter, ev.ChapterTitle)
	case workflow.StageDraft:
		return fmt.Sprintf("%s %s %s%s", tag, chapter, ev.ChapterTitle, pathNote(ev.Path))
	case workflow.StageReview:
		delta := dimStyle.Render(fmt.Sprintf("+%d/-%d", ev.Inserted, ev.Deleted))
		return fmt.Sprintf("%s [%d/%d] %s complete %s%s", tag, ev.ChapterIndex, ev.ChapterCount,
			ev.ChapterTitle, delta, pathNote(ev.Path))
	case workflow.StageTerminate:
		style, ok := outcomeStyle[ev.Outcome]
		if !ok {
			style = dimStyle
		}
		line := fmt.Sprintf("%s %s: %d/%d chapters, %d chars", tag, style.Render(string(ev.Outcome)),
			ev.ChapterIndex, ev.ChapterCount, ev.DocumentLength)
		if ev.Error != "" {
			line += " " + failStyle.Render(ev.Error)
		}
		return line
	}
	return fmt.Sprintf("%s %s", tag, ev.ChapterTitle)
}

func pathNote(path workflow.Path) string {
	switch path {
	case "", workflow.PathOriginal:
		return ""
	default:
		return " " + warnStyle.Render("("+string(path)+")")
	}
}
