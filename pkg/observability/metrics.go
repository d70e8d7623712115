// Package observability exposes run stream metrics via prometheus. The
// Collector is a stream tap: it decorates an event channel pass-through,
// so attaching it never changes what the consumer sees.
package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/canopy/pkg/domain"
)

// Run outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
	OutcomeCanceled  = "canceled"
)

// Collector owns the prometheus collectors for run streams.
type Collector struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	events      *prometheus.CounterVec
	toolResults *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopy_runs_total",
			Help: "Finished runs by outcome.",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopy_events_total",
			Help: "Stream events by kind.",
		}, []string{"kind"}),
		toolResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopy_tool_results_total",
			Help: "Tool results merged into run environments, by tool.",
		}, []string{"tool"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "canopy_run_duration_seconds",
			Help:    "Run duration from first event to stream close.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(c.runs, c.events, c.toolResults, c.duration)
	return c
}

// Register adds the collectors to an external registry, for hosts that
// aggregate metrics from several subsystems.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{c.runs, c.events, c.toolResults, c.duration} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns the scrape handler for the Collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Tap forwards events unchanged while counting them. The run counter
// and duration histogram are updated when the stream closes; a stream
// that closes without a terminal event counts as canceled.
func (c *Collector) Tap(ctx context.Context, in <-chan domain.Event) <-chan domain.Event {
	out := make(chan domain.Event)
	go func() {
		defer close(out)

		var started time.Time
		outcome := OutcomeCanceled

		for ev := range in {
			if started.IsZero() {
				started = time.Now()
			}
			c.events.WithLabelValues(string(ev.Kind())).Inc()

			switch e := ev.(type) {
			case domain.Completed:
				outcome = OutcomeCompleted
			case domain.Error:
				if !e.Recoverable {
					outcome = OutcomeError
				}
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				// The consumer is gone; drain so the producer can
				// finish and fall through to the run accounting.
				for range in {
				}
				c.finish(started, OutcomeCanceled)
				return
			}
		}
		c.finish(started, outcome)
	}()
	return out
}

func (c *Collector) finish(started time.Time, outcome string) {
	c.runs.WithLabelValues(outcome).Inc()
	if !started.IsZero() {
		c.duration.Observe(time.Since(started).Seconds())
	}
}

// ObserveResults counts the "{tool}.result" keys of a finished run's
// environment snapshot (or Outcome.Results).
func (c *Collector) ObserveResults(results map[string]any) {
	for key := range results {
		tool, ok := strings.CutSuffix(key, ".result")
		if !ok || tool == "" {
			continue
		}
		c.toolResults.WithLabelValues(tool).Inc()
	}
}
