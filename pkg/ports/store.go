package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// RunStore persists the ordered step log of runs. Implementations observe
// runs from the outside; the engine itself never writes to a store.
type RunStore interface {
	// Append adds one record to a run's step log. Records arrive in stream
	// order; implementations must preserve Seq ordering on read.
	Append(ctx context.Context, rec domain.StepRecord) error

	// List returns a run's records ordered by Seq.
	// Returns domain.ErrRunNotFound if the run has no records.
	List(ctx context.Context, runID string) ([]domain.StepRecord, error)

	// Runs summarizes all recorded runs, most recent first.
	Runs(ctx context.Context) ([]domain.RunInfo, error)

	// Delete removes a run's records. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error
}
