// Package metrics exports workflow progress as Prometheus metrics.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"auto_report_generator/workflow"
)

const namespace = "report_generator"

// Observer is a workflow.Observer that records every event it sees. One
// Observer may be shared by concurrent runs.
type Observer struct {
	transitions    *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	documentChars  prometheus.Histogram
	chaptersPerRun prometheus.Histogram
	runs           *prometheus.CounterVec
	activeRuns     prometheus.Gauge

	mu   sync.Mutex
	last map[string]time.Time
}

// New registers the collectors on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Observer{
		// transitions counts stage executions.
		// Labels: stage (plan, research, draft, review)
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "stage_transitions_total",
			Help:      "Total workflow stage executions",
		}, []string{"stage"}),

		// fallbacks counts chapter bodies that did not come from the first
		// attempt.
		// Labels: stage (draft, review), path (sanitized, placeholder, unreviewed)
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "content_policy_fallbacks_total",
			Help:      "Total content-policy fallbacks by stage and path",
		}, []string{"stage", "path"}),

		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each workflow stage, measured between consecutive events of a run",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"stage"}),

		documentChars: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "document_chars",
			Help:      "Final document size in characters",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 8),
		}),

		chaptersPerRun: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "chapters",
			Help:      "Chapters appended per run",
			Buckets:   []float64{0, 1, 3, 5, 10, 15, 20},
		}),

		// runs counts finished runs.
		// Labels: outcome (completed, partial, failed, canceled)
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "finished_total",
			Help:      "Total finished runs by outcome",
		}, []string{"outcome"}),

		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "active",
			Help:      "Runs that have emitted events but not terminated",
		}),

		last: make(map[string]time.Time),
	}
}

func (o *Observer) Notify(_ context.Context, ev workflow.Event) error {
	o.observeDuration(ev)

	if ev.Stage == workflow.StageTerminate {
		o.runs.WithLabelValues(string(ev.Outcome)).Inc()
		o.documentChars.Observe(float64(ev.DocumentLength))
		o.chaptersPerRun.Observe(float64(ev.ChapterIndex))
		return nil
	}
	o.transitions.WithLabelValues(string(ev.Stage)).Inc()
	if ev.Path != "" && ev.Path != workflow.PathOriginal {
		o.fallbacks.WithLabelValues(string(ev.Stage), string(ev.Path)).Inc()
	}
	return nil
}

func (o *Observer) observeDuration(ev workflow.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev, seen := o.last[ev.RunID]
	switch {
	case ev.Stage == workflow.StageTerminate:
		if seen {
			delete(o.last, ev.RunID)
			o.activeRuns.Dec()
		}
	case !seen:
		o.activeRuns.Inc()
		o.last[ev.RunID] = ev.Time
		// The first stage is timed from the run start.
		prev, seen = ev.StartedAt, true
	default:
		o.last[ev.RunID] = ev.Time
	}
	if seen && !ev.Time.IsZero() && !prev.IsZero() {
		o.stageDuration.WithLabelValues(string(ev.Stage)).Observe(ev.Time.Sub(prev).Seconds())
	}
}
