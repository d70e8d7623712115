package domain

import "context"

// Tool is the capability contract every executable leaf action implements.
//
// Name doubles as the tree-wide registry key and the decision-option
// identifier, so it must be unique within a Tree. Terminal tools end the
// whole run once their event sequence is exhausted.
type Tool interface {
	Name() string
	Description() string
	Terminal() bool
	Metadata() map[string]any

	// Available is a side-effect-free predicate evaluated before invocation.
	// It may perform read-only I/O (a capability check). When it returns
	// false the engine emits a recoverable availability Error carrying the
	// reason and does not execute the tool.
	Available(ctx context.Context, run *Run) (bool, string)

	// ShouldRun is a cheap gate evaluated after availability passes. False
	// means the tool is silently skipped: no event, no Environment write.
	ShouldRun(ctx context.Context, run *Run) bool

	// Execute produces the tool's finite, forward-only event sequence by
	// calling emit once per event, in order. The sequence may be empty.
	// Emit blocks until the consumer receives the event; when it returns an
	// error the run is being torn down and the tool must stop. A returned
	// error aborts the run.
	Execute(ctx context.Context, run *Run, emit EmitFunc) error
}

// DecisionFunc is the externally supplied decision strategy: given a branch
// instruction and its option names it returns exactly one member of options.
// It may perform network or model I/O; it is a suspension point of the run.
type DecisionFunc func(ctx context.Context, instruction string, options []string, run *Run) (string, error)
