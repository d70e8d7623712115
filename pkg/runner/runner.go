package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/runlog"
)

// Runner drives a tree run end to end: it starts the traversal, feeds
// every event to the presentation handler, optionally records the
// stream, and returns the aggregated Outcome.
type Runner struct {
	tree    *canopy.Tree
	handler Handler
	store   ports.RunStore
	metrics *observability.Collector
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithHandler sets the presentation strategy. Defaults to a TextHandler
// on stdout.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		if h != nil {
			r.handler = h
		}
	}
}

// WithStore records the event stream into store via a runlog.Recorder.
func WithStore(store ports.RunStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithMetrics taps the stream into collector and reports the run's tool
// results after the stream closes.
func WithMetrics(collector *observability.Collector) Option {
	return func(r *Runner) {
		r.metrics = collector
	}
}

// WithLogger sets the runner's diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner over an assembled tree.
func New(tree *canopy.Tree, opts ...Option) *Runner {
	r := &Runner{
		tree:   tree,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil)
	}
	return r
}

// Run executes one prompt and drains the stream to completion. Handler
// errors do not abort the drain: the stream is unbuffered, so stopping
// early would wedge the engine goroutine. The first handler error is
// returned after the stream closes.
func (r *Runner) Run(ctx context.Context, prompt string, runOpts ...canopy.RunOption) (*Outcome, error) {
	run := domain.NewRun(prompt)
	events := r.tree.RunWith(ctx, run, runOpts...)

	if r.metrics != nil {
		events = r.metrics.Tap(ctx, events)
	}
	if r.store != nil {
		rec := runlog.NewRecorder(r.store, runlog.WithLogger(r.logger))
		events = rec.Record(ctx, run.ID, events)
	}

	var handlerErr error
	out := &Outcome{RunID: run.ID}
	for ev := range events {
		out.Events++
		switch e := ev.(type) {
		case domain.Response:
			out.Response = e.Content
		case domain.Error:
			if !e.Recoverable {
				failure := e
				out.Err = &failure
			}
		case domain.Completed:
			out.Completed = true
		}

		if err := r.handler.Handle(ctx, ev); err != nil && handlerErr == nil {
			handlerErr = err
			r.logger.Warn("handler failed, draining remainder of stream", "err", err)
		}
	}

	out.Environment = run.Environment.Snapshot()
	for k, v := range out.Environment {
		if isResultKey(k) {
			if out.Results == nil {
				out.Results = make(map[string]any)
			}
			out.Results[k] = v
		}
	}
	if r.metrics != nil {
		r.metrics.ObserveResults(out.Results)
	}

	if handlerErr != nil {
		return out, fmt.Errorf("handler error: %w", handlerErr)
	}
	if !out.Completed && out.Err == nil && ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, nil
}
