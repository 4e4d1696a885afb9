package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxTransitions is the ceiling used when a request sets none.
const DefaultMaxTransitions = 200

// Request starts one run.
type Request struct {
	RunID           string
	Topic           string
	UploadedContext string
	MaxTransitions  int
}

// Result is what a run leaves behind, including on failure.
type Result struct {
	RunID        string   `json:"run_id"`
	Outcome      Outcome  `json:"outcome"`
	Document     string   `json:"-"`
	Outline      []string `json:"outline"`
	ChaptersDone int      `json:"chapters_done"`
	Transitions  int      `json:"transitions"`
	Err          error    `json:"-"`
}

// Partial reports a ceiling stop: incomplete but intentionally usable.
func (r Result) Partial() bool { return r.Outcome == OutcomePartial }

// Usable reports whether at least one chapter was produced.
func (r Result) Usable() bool { return r.ChaptersDone > 0 }

// Summary is the user-facing status line for the result.
func (r Result) Summary() string {
	switch r.Outcome {
	case OutcomeCompleted:
		return fmt.Sprintf("generation complete: %d chapters", r.ChaptersDone)
	case OutcomePartial:
		return fmt.Sprintf("generation incomplete, partial result available (%d of %d chapters)", r.ChaptersDone, len(r.Outline))
	default:
		if r.Usable() {
			return fmt.Sprintf("generation %s after %d of %d chapters, partial result available", r.Outcome, r.ChaptersDone, len(r.Outline))
		}
		return fmt.Sprintf("generation %s, no usable output", r.Outcome)
	}
}

// Driver owns run setup: fresh state per run, the transition ceiling, and
// packaging the outcome.
type Driver struct {
	engine       *Engine
	defaultLimit int
	logger       *slog.Logger
}

func NewDriver(engine *Engine, defaultLimit int, logger *slog.Logger) (*Driver, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultMaxTransitions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{engine: engine, defaultLimit: defaultLimit, logger: logger.With("component", "driver")}, nil
}

// Run executes one request. The returned Result always carries the
// accumulated document; the error is non-nil only for failed or canceled
// runs. A ceiling stop returns OutcomePartial with a nil error.
func (d *Driver) Run(ctx context.Context, req Request, obs Observer) (Result, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return Result{RunID: req.RunID, Outcome: OutcomeFailed, Err: ErrEmptyTopic}, ErrEmptyTopic
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	limit := req.MaxTransitions
	if limit <= 0 {
		limit = d.defaultLimit
	}

	st := NewChapterState(req.Topic, req.UploadedContext)
	d.logger.Info("run started", "run_id", req.RunID, "context_chars", len(req.UploadedContext), "max_transitions", limit)
	outcome, transitions, err := d.engine.Execute(ctx, req.RunID, st, limit, obs)

	res := Result{
		RunID:        req.RunID,
		Outcome:      outcome,
		Document:     st.FinalDocument(),
		Outline:      st.Outline(),
		ChaptersDone: st.ChapterIndex(),
		Transitions:  transitions,
		Err:          err,
	}
	d.logger.Info("run finished", "run_id", req.RunID, "outcome", outcome,
		"chapters_done", res.ChaptersDone, "document_chars", len(res.Document))
	return res, err
}
