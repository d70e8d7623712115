package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one turn of conversation history attached to a run.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Run is the per-run context threaded by reference through every branch and
// tool invocation of a single traversal. One instance exists per Tree run;
// it is never shared across concurrent runs.
type Run struct {
	// ID identifies the run for step logs and transports.
	ID string

	// Prompt is the user query that started the run.
	Prompt string

	// Collections are opaque handles to attached data sets.
	Collections []string

	// History is prior conversation context, oldest first.
	History []Message

	// Environment accumulates tool outputs for the lifetime of the run.
	Environment *Environment

	// Metadata carries arbitrary caller-supplied run annotations.
	Metadata map[string]any

	// StartedAt is when the run context was created.
	StartedAt time.Time
}

// NewRun builds a fresh run context for prompt with a new Environment and
// a generated ID. Optional fields are left empty for the caller to fill.
func NewRun(prompt string) *Run {
	return &Run{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Collections: []string{},
		History:     []Message{},
		Environment: NewEnvironment(),
		Metadata:    map[string]any{},
		StartedAt:   time.Now(),
	}
}
