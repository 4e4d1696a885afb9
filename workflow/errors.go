package workflow

import (
	"errors"
	"fmt"
)

// Outcome is how a run ended.
type Outcome string

const (
	// OutcomeCompleted: every outline chapter was appended.
	OutcomeCompleted Outcome = "completed"
	// OutcomePartial: the transition ceiling stopped the run; the document
	// holds every chapter finished before that.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed: a fatal error aborted the run.
	OutcomeFailed Outcome = "failed"
	// OutcomeCanceled: the caller abandoned the run.
	OutcomeCanceled Outcome = "canceled"
)

// RunError locates a fatal failure in the state machine.
type RunError struct {
	Stage        Stage
	ChapterIndex int
	ChapterTitle string
	Err          error
}

func (e *RunError) Error() string {
	if e.ChapterTitle == "" {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage failed on chapter %d (%s): %v", e.Stage, e.ChapterIndex+1, e.ChapterTitle, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// ErrEmptyTopic is returned by the driver before any stage runs.
var ErrEmptyTopic = errors.New("topic is required")
