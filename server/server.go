package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auto_report_generator/config"
	"auto_report_generator/workflow"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Runner executes one generation run. workflow.Driver is the production
// implementation.
type Runner interface {
	Run(ctx context.Context, req workflow.Request, obs workflow.Observer) (workflow.Result, error)
}

// Options configures a Server; zero values are usable.
type Options struct {
	// Observer receives the events of every run next to the run's own
	// recorder, typically the metrics observer.
	Observer workflow.Observer
	// Gatherer backs GET /metrics; nil uses the default registry.
	Gatherer   prometheus.Gatherer
	RunTimeout time.Duration
	// Output names downloaded documents; an empty prefix uses the default.
	Output config.OutputConfig
	Logger *slog.Logger
}

// Server exposes runs over HTTP. Runs execute in the background; each has
// its own state and recorder, only the Runner is shared.
type Server struct {
	runner Runner
	opts   Options
	store  *runStore
	logger *slog.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func New(runner Runner, opts Options) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner required")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Output.Prefix == "" {
		opts.Output.Prefix = config.DefaultOutputPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Server{
		runner:  runner,
		opts:    opts,
		store:   newStore(),
		logger:  logger.With("component", "server"),
		baseCtx: ctx,
		stop:    stop,
	}, nil
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logMiddleware())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/runs")
	api.POST("", s.handleRunCreate)
	api.GET("", s.handleRunList)
	api.GET("/:id", s.handleRunGet)
	api.DELETE("/:id", s.handleRunCancel)
	api.GET("/:id/document", s.handleDocument)
	api.GET("/:id/events", s.handleEvents)
	return r
}

// Start launches a run and returns its id.
func (s *Server) Start(req workflow.Request) string {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.opts.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.baseCtx, s.opts.RunTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.baseCtx)
	}
	entry := newRunEntry(req, cancel)
	s.store.set(entry)

	obs := workflow.Observers{entry.recorder}
	if s.opts.Observer != nil {
		obs = append(obs, s.opts.Observer)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		res, err := s.runner.Run(ctx, req, obs)
		if err != nil {
			s.logger.Warn("run ended with error", "run_id", req.RunID, "outcome", res.Outcome, "error", err)
		}
		entry.finish(res, err)
	}()
	s.logger.Info("run accepted", "run_id", req.RunID, "topic", req.Topic)
	return req.RunID
}

// Cancel asks a run to stop. It reports ErrRunNotFound for unknown ids.
func (s *Server) Cancel(id string) error {
	entry, ok := s.store.get(id)
	if !ok {
		return ErrRunNotFound
	}
	entry.cancel()
	return nil
}

// Shutdown cancels every run and waits for them to finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Store ---

const (
	statusRunning  = "running"
	statusFinished = "finished"
)

type runEntry struct {
	id       string
	topic    string
	created  time.Time
	recorder *workflow.Recorder
	cancel   context.CancelFunc

	mu         sync.Mutex
	finished   bool
	finishedAt time.Time
	result     workflow.Result
	err        error
}

func newRunEntry(req workflow.Request, cancel context.CancelFunc) *runEntry {
	return &runEntry{
		id:       req.RunID,
		topic:    req.Topic,
		created:  time.Now(),
		recorder: workflow.NewRecorder(),
		cancel:   cancel,
	}
}

func (e *runEntry) finish(res workflow.Result, err error) {
	e.mu.Lock()
	e.finished = true
	e.finishedAt = time.Now()
	e.result = res
	e.err = err
	e.mu.Unlock()
	e.recorder.Close()
}

type runView struct {
	result     workflow.Result
	err        error
	finished   bool
	finishedAt time.Time
}

func (e *runEntry) view() runView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return runView{result: e.result, err: e.err, finished: e.finished, finishedAt: e.finishedAt}
}

type runStore struct {
	mu   sync.Mutex
	runs map[string]*runEntry
}

func newStore() *runStore {
	return &runStore{runs: make(map[string]*runEntry)}
}

func (s *runStore) set(e *runEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[e.id] = e
}

func (s *runStore) get(id string) (*runEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[id]
	return e, ok
}

func (s *runStore) list() []*runEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*runEntry, 0, len(s.runs))
	for _, e := range s.runs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].created.Before(out[j].created) })
	return out
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request", "method", c.Request.Method, "path", c.FullPath(),
			"status", c.Writer.Status(), "duration", time.Since(start))
	}
}

func errorJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) lookup(c *gin.Context) (*runEntry, bool) {
	entry, ok := s.store.get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, ErrRunNotFound)
	}
	return entry, ok
}
