package runner

import (
	"context"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// Outcome is the aggregate view of a finished run for hosts that do not
// consume the stream event by event.
type Outcome struct {
	RunID string `json:"run_id,omitempty"`

	// Response is the content of the last Response event, if any.
	Response string `json:"response,omitempty"`

	// Completed reports whether the run ended with a Completed event.
	// When false, Err carries the fatal error (or the context was
	// canceled before the run finished).
	Completed bool          `json:"completed"`
	Err       *domain.Error `json:"error,omitempty"`

	// Results holds the "{tool}.result" entries merged into the
	// Environment; Environment is the full final snapshot. Both are nil
	// when the run context was not supplied to Collect.
	Results     map[string]any `json:"results,omitempty"`
	Environment map[string]any `json:"environment,omitempty"`

	// Events counts every event received, terminal included.
	Events int `json:"events"`
}

// Collect drains events to completion and summarizes the run. run may be
// nil when the caller has no handle on the run context (transports); the
// Environment and Results fields then stay nil. The snapshot is taken
// only after the stream closes, when no producer writes remain.
func Collect(ctx context.Context, run *domain.Run, events <-chan domain.Event) (*Outcome, error) {
	out := &Outcome{}
	if run != nil {
		out.RunID = run.ID
	}

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
	}

	if run != nil {
		out.Environment = run.Environment.Snapshot()
		for k, v := range out.Environment {
			if isResultKey(k) {
				if out.Results == nil {
					out.Results = make(map[string]any)
				}
				out.Results[k] = v
			}
		}
	}

	// A stream that closed with no terminal event means the run context
	// was canceled mid-traversal.
	if !out.Completed && out.Err == nil && ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, nil
}

func isResultKey(k string) bool {
	return strings.HasSuffix(k, ".result")
}
