package domain

import "context"

// Kind discriminates the closed set of event variants a run can stream.
type Kind string

const (
	KindStatus    Kind = "status"
	KindResult    Kind = "result"
	KindRetrieval Kind = "retrieval"
	KindResponse  Kind = "response"
	KindError     Kind = "error"
	KindCompleted Kind = "completed"
)

// Event is one signal in the ordered stream produced by a run.
// The set of implementations is closed: Status, Result, Retrieval,
// Response, Error and Completed.
type Event interface {
	Kind() Kind
}

// DataCarrier is implemented by the event variants whose payload the engine
// merges into the run Environment under "{tool_name}.result" before the
// event is forwarded to the caller.
type DataCarrier interface {
	Event
	EventData() any
}

// EmitFunc delivers one event to the run's stream. It blocks until the
// consumer receives the event and returns a non-nil error when the run
// context is canceled, at which point the producer must stop.
type EmitFunc func(ctx context.Context, ev Event) error

// Status is an informational progress signal. It has no side effect on the
// Environment.
type Status struct {
	Message string `json:"message"`
}

func (Status) Kind() Kind { return KindStatus }

// Result is a structured tool result. Its Data payload is merged into the
// Environment by the engine.
type Result struct {
	Data        any            `json:"data"`
	Summary     string         `json:"summary,omitempty"`
	DisplayType string         `json:"display_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (Result) Kind() Kind { return KindResult }

// EventData exposes the merge payload for the Environment.
func (r Result) EventData() any { return r.Data }

// Retrieval is a result specialized for retrieved-record sets. Its objects
// are presentation payload, not Environment data.
type Retrieval struct {
	Objects  []map[string]any `json:"objects"`
	Summary  string           `json:"summary,omitempty"`
	Source   string           `json:"source,omitempty"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

func (Retrieval) Kind() Kind { return KindRetrieval }

// Response carries natural-language content, conventionally the last event
// before run completion.
type Response struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (Response) Kind() Kind { return KindResponse }

// Error is a failure signal. Recoverable false means the run stops with this
// event as its terminal event.
type Error struct {
	Message     string         `json:"message"`
	ErrorKind   ErrorKind      `json:"error_kind"`
	Recoverable bool           `json:"recoverable"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (Error) Kind() Kind { return KindError }

// Error implements the error interface so a terminal failure event can be
// handed directly to error-aware callers.
func (e Error) Error() string { return e.Message }

// Completed is the terminal success marker for a run. Its message carries
// the tree name.
type Completed struct {
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (Completed) Kind() Kind { return KindCompleted }

// Terminal reports whether ev closes its run: a Completed event or a
// non-recoverable Error.
func Terminal(ev Event) bool {
	switch e := ev.(type) {
	case Completed:
		return true
	case Error:
		return !e.Recoverable
	default:
		return false
	}
}
