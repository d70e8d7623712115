package runlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Recorder is a stream tap: it forwards a run's event stream unchanged
// while appending every event to a RunStore. Observation must never perturb
// the run, so store failures are logged and swallowed rather than injected
// into the stream.
type Recorder struct {
	store  ports.RunStore
	logger *slog.Logger
	now    func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger used for deferred store errors.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store ports.RunStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record returns a stream identical to in, persisting each event under
// runID before forwarding it. The returned channel closes when in closes.
// Like the engine's own stream it is unbuffered, so ordering and
// backpressure semantics pass through untouched.
func (r *Recorder) Record(ctx context.Context, runID string, in <-chan domain.Event) <-chan domain.Event {
	out := make(chan domain.Event)

	go func() {
		defer close(out)
		seq := 0
		for ev := range in {
			rec := domain.StepRecord{
				RunID: runID,
				Seq:   seq,
				At:    r.now(),
				Event: ev,
			}
			if err := r.store.Append(ctx, rec); err != nil {
				r.logger.WarnContext(ctx, "step record dropped", "run_id", runID, "seq", seq, "err", err)
			}
			seq++

			select {
			case out <- ev:
			case <-ctx.Done():
				// Drain so the producer is not wedged on an abandoned tap.
				for range in {
				}
				return
			}
		}
	}()

	return out
}
