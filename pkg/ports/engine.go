package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// RunSpec carries the caller-supplied inputs of one run request, the
// transport-level equivalent of the facade's run options.
type RunSpec struct {
	Prompt      string           `json:"prompt"`
	Collections []string         `json:"collections,omitempty"`
	History     []domain.Message `json:"history,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// Engine is the orchestrator surface consumed by transport adapters.
// The event channel follows the run contract: strictly ordered, closed
// after the terminal event (or after cancellation).
type Engine interface {
	// Name identifies the tree, used in completion events and banners.
	Name() string

	// Execute starts a run for spec and returns its event stream.
	Execute(ctx context.Context, spec RunSpec) <-chan domain.Event

	// Inspect returns the assembled tree structure for introspection.
	Inspect() domain.TreeInfo

	// Validate checks tree well-formedness.
	Validate() error
}
