package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"auto_report_generator/generator"
)

const tracerName = "auto_report_generator/workflow"

// Capabilities are the four role operations the engine sequences. Each
// call is a single attempt; generator.Agent is the production
// implementation.
type Capabilities interface {
	Plan(ctx context.Context, topic, uploadedContext string) ([]string, error)
	Research(ctx context.Context, title string) (string, error)
	Draft(ctx context.Context, in generator.DraftInput) (string, error)
	Review(ctx context.Context, title, draft string) (string, error)
}

// Engine drives plan -> research -> draft -> review -> {research|terminate}
// over one ChapterState. An Engine holds no run data and may serve many
// runs concurrently.
type Engine struct {
	caps   Capabilities
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewEngine(caps Capabilities, logger *slog.Logger) (*Engine, error) {
	if caps == nil {
		return nil, errors.New("capabilities are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		caps:   caps,
		logger: logger.With("component", "workflow"),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}, nil
}

// run is the per-execution context: nothing here is shared across runs.
type run struct {
	id      string
	state   *ChapterState
	obs     Observer
	logger  *slog.Logger
	started time.Time
}

// Execute runs the state machine until the outline is consumed, the
// transition ceiling is reached, ctx is done, or a stage fails fatally.
// Every stage execution counts as one transition and the ceiling is checked
// before each one. The state keeps whatever was accumulated in all cases.
func (e *Engine) Execute(ctx context.Context, runID string, st *ChapterState, limit int, obs Observer) (Outcome, int, error) {
	r := &run{id: runID, state: st, obs: obs, logger: e.logger.With("run_id", runID), started: e.now()}
	transitions := 0
	stage := StagePlan
	for {
		if stage == StageTerminate {
			r.logger.Info("all chapters complete", "chapters", st.ChapterCount(), "transitions", transitions)
			e.terminate(ctx, r, OutcomeCompleted, nil)
			return OutcomeCompleted, transitions, nil
		}
		if err := ctx.Err(); err != nil {
			return e.abort(ctx, r, OutcomeCanceled, stage, transitions, err)
		}
		if transitions >= limit {
			r.logger.Warn("transition ceiling reached, returning partial document",
				"limit", limit, "chapter_index", st.ChapterIndex(), "chapter_count", st.ChapterCount())
			e.terminate(ctx, r, OutcomePartial, nil)
			return OutcomePartial, transitions, nil
		}
		transitions++

		next, err := e.step(ctx, r, stage)
		if err != nil {
			if ctx.Err() != nil {
				return e.abort(ctx, r, OutcomeCanceled, stage, transitions, ctx.Err())
			}
			return e.abort(ctx, r, OutcomeFailed, stage, transitions, err)
		}
		stage = next
	}
}

func (e *Engine) abort(ctx context.Context, r *run, outcome Outcome, stage Stage, transitions int, err error) (Outcome, int, error) {
	runErr := &RunError{Stage: stage, ChapterIndex: r.state.ChapterIndex(), Err: err}
	if stage != StagePlan {
		runErr.ChapterTitle = r.state.CurrentTitle()
	}
	r.logger.Error("run stopped", "outcome", outcome, "stage", stage,
		"chapters_done", r.state.ChapterIndex(), "transitions", transitions, "error", err)
	e.terminate(ctx, r, outcome, runErr)
	return outcome, transitions, runErr
}

func (e *Engine) step(ctx context.Context, r *run, stage Stage) (Stage, error) {
	st := r.state
	ctx, span := e.tracer.Start(ctx, "workflow."+string(stage), trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.Int("chapter.index", st.ChapterIndex()),
	))
	defer span.End()

	next, ev, err := e.runStage(ctx, r, stage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if ev.Path != "" {
		span.SetAttributes(attribute.String("fallback.path", string(ev.Path)))
	}
	e.notify(ctx, r, ev)
	return next, nil
}

func (e *Engine) runStage(ctx context.Context, r *run, stage Stage) (Stage, Event, error) {
	st := r.state
	switch stage {
	case StagePlan:
		titles, err := e.caps.Plan(ctx, st.Topic(), st.UploadedContext())
		if err == nil && len(titles) == 0 {
			err = generator.ErrNoTitles
		}
		if err != nil {
			var planErr *generator.PlanningError
			if !errors.As(err, &planErr) {
				err = &generator.PlanningError{Err: err}
			}
			return "", Event{}, err
		}
		if err := ctx.Err(); err != nil {
			return "", Event{}, err
		}
		if err := st.setOutline(titles); err != nil {
			return "", Event{}, err
		}
		r.logger.Info("outline generated", "chapters", len(titles))
		return StageResearch, e.event(r, StagePlan, ""), nil

	case StageResearch:
		title := st.CurrentTitle()
		r.logger.Info("researching chapter", "chapter", st.ChapterIndex()+1, "title", title)
		notes, err := e.caps.Research(ctx, title)
		if err != nil {
			return "", Event{}, err
		}
		if err := ctx.Err(); err != nil {
			return "", Event{}, err
		}
		st.setResearchNotes(notes)
		return StageDraft, e.event(r, StageResearch, title), nil

	case StageDraft:
		title := st.CurrentTitle()
		body, path, err := e.draft(ctx, r, title)
		if err != nil {
			return "", Event{}, err
		}
		if err := ctx.Err(); err != nil {
			return "", Event{}, err
		}
		st.setChapterDraft(body)
		r.logger.Info("chapter drafted", "title", title, "chars", len(body), "path", path)
		ev := e.event(r, StageDraft, title)
		ev.Path = path
		return StageReview, ev, nil

	case StageReview:
		title := st.CurrentTitle()
		draft := st.ChapterDraft()
		body, path, err := e.review(ctx, r, title, draft)
		if err != nil {
			return "", Event{}, err
		}
		if err := ctx.Err(); err != nil {
			return "", Event{}, err
		}
		if err := st.appendChapter(body); err != nil {
			return "", Event{}, err
		}
		ins, del := reviewDelta(draft, body)
		r.logger.Info("chapter complete", "chapter", st.ChapterIndex(), "of", st.ChapterCount(),
			"title", title, "path", path, "inserted", ins, "deleted", del)
		ev := e.event(r, StageReview, title)
		ev.Path, ev.Inserted, ev.Deleted = path, ins, del
		if st.ChapterIndex() < st.ChapterCount() {
			return StageResearch, ev, nil
		}
		return StageTerminate, ev, nil
	}
	return "", Event{}, fmt.Errorf("unknown stage %q", stage)
}

// draft runs the content-policy fallback for the draft stage: original
// attempt, then one retry on sanitized inputs, then the placeholder body.
// Only a non-policy failure of the first attempt escapes.
func (e *Engine) draft(ctx context.Context, r *run, title string) (string, Path, error) {
	in := generator.DraftInput{Title: title, Notes: r.state.ResearchNotes(), Context: r.state.UploadedContext()}
	body, err := e.caps.Draft(ctx, in)
	if err == nil {
		return body, PathOriginal, nil
	}
	if !generator.IsContentPolicy(err) {
		return "", "", err
	}
	notes, replacedNotes := generator.SanitizeReport(in.Notes)
	uploaded, replacedCtx := generator.SanitizeReport(in.Context)
	r.logger.Warn("content filter triggered on draft, sanitizing and retrying",
		"title", title, "replaced", append(replacedNotes, replacedCtx...))

	body, err = e.caps.Draft(ctx, generator.DraftInput{Title: title, Notes: notes, Context: uploaded})
	if err == nil {
		return body, PathSanitized, nil
	}
	if ctx.Err() != nil {
		return "", "", ctx.Err()
	}
	r.logger.Warn("draft retry failed, using placeholder chapter", "title", title, "error", err)
	return generator.Placeholder(title), PathPlaceholder, nil
}

// review mirrors draft, but a failed retry keeps the unreviewed draft.
func (e *Engine) review(ctx context.Context, r *run, title, draft string) (string, Path, error) {
	body, err := e.caps.Review(ctx, title, draft)
	if err == nil {
		return body, PathOriginal, nil
	}
	if !generator.IsContentPolicy(err) {
		return "", "", err
	}
	sanitized, replaced := generator.SanitizeReport(draft)
	r.logger.Warn("content filter triggered on review, sanitizing and retrying", "title", title, "replaced", replaced)

	body, err = e.caps.Review(ctx, title, sanitized)
	if err == nil {
		return body, PathSanitized, nil
	}
	if ctx.Err() != nil {
		return "", "", ctx.Err()
	}
	r.logger.Warn("review retry failed, keeping unreviewed draft", "title", title, "error", err)
	return draft, PathUnreviewed, nil
}

func (e *Engine) event(r *run, stage Stage, title string) Event {
	return Event{
		RunID:          r.id,
		Stage:          stage,
		ChapterIndex:   r.state.ChapterIndex(),
		ChapterCount:   r.state.ChapterCount(),
		ChapterTitle:   title,
		DocumentLength: len(r.state.FinalDocument()),
		Time:           e.now(),
		StartedAt:      r.started,
	}
}

func (e *Engine) terminate(ctx context.Context, r *run, outcome Outcome, err error) {
	ev := e.event(r, StageTerminate, "")
	ev.Outcome = outcome
	if err != nil {
		ev.Error = err.Error()
	}
	// The terminate event must reach observers even when ctx is canceled.
	e.notify(context.WithoutCancel(ctx), r, ev)
}

// notify calls the observer and swallows anything it does wrong.
func (e *Engine) notify(ctx context.Context, r *run, ev Event) {
	if r.obs == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("progress observer panicked", "stage", ev.Stage, "panic", p)
		}
	}()
	if err := r.obs.Notify(ctx, ev); err != nil {
		r.logger.Warn("progress observer failed", "stage", ev.Stage, "error", err)
	}
}
