package workflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Stage names a state of the workflow state machine.
type Stage string

const (
	StagePlan      Stage = "plan"
	StageResearch  Stage = "research"
	StageDraft     Stage = "draft"
	StageReview    Stage = "review"
	StageTerminate Stage = "terminate"
)

// Path records which branch of the content-policy fallback produced a
// chapter body.
type Path string

const (
	PathOriginal    Path = "original"
	PathSanitized   Path = "sanitized"
	PathPlaceholder Path = "placeholder"
	PathUnreviewed  Path = "unreviewed"
)

// Event is emitted after every stage transition.
type Event struct {
	RunID          string    `json:"run_id"`
	Stage          Stage     `json:"stage"`
	ChapterIndex   int       `json:"chapter_index"`
	ChapterCount   int       `json:"chapter_count"`
	ChapterTitle   string    `json:"chapter_title,omitempty"`
	DocumentLength int       `json:"document_length"`
	Path           Path      `json:"path,omitempty"`
	Inserted       int       `json:"inserted,omitempty"`
	Deleted        int       `json:"deleted,omitempty"`
	Outcome        Outcome   `json:"outcome,omitempty"`
	Error          string    `json:"error,omitempty"`
	Time           time.Time `json:"time"`
	// StartedAt is when the run began; it times the first stage.
	StartedAt time.Time `json:"started_at"`
}

// Observer receives progress events. It is advisory: errors and panics are
// logged by the engine and otherwise ignored.
type Observer interface {
	Notify(ctx context.Context, ev Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event) error

func (f ObserverFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Observers fans one event out to several observers.
type Observers []Observer

func (o Observers) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, obs := range o {
		if obs == nil {
			continue
		}
		if err := obs.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every event of a run and forwards new ones to
// subscribers. Slow subscribers miss events rather than block the run.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	subs   map[chan Event]struct{}
	closed bool
}

func NewRecorder() *Recorder {
	return &Recorder{subs: make(map[chan Event]struct{})}
}

func (r *Recorder) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	for ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.Stage == StageTerminate {
		r.closeLocked()
	}
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Subscribe returns past events and a channel of future ones. The channel
// is closed after the terminate event or when cancel is called.
func (r *Recorder) Subscribe() ([]Event, <-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	past := append([]Event(nil), r.events...)
	ch := make(chan Event, 64)
	if r.closed {
		close(ch)
		return past, ch, func() {}
	}
	r.subs[ch] = struct{}{}
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
	}
	return past, ch, cancel
}

// Close ends every subscription. Runs that stop before emitting a
// terminate event are closed by their owner.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Recorder) closeLocked() {
	r.closed = true
	for ch := range r.subs {
		delete(r.subs, ch)
		close(ch)
	}
}
