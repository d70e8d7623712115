package domain

import "sync"

// Environment is the per-run key-value store accumulating tool outputs.
// It is created fresh at the start of every run, lives exactly as long as
// the run, and is never shared across concurrent runs.
//
// Writes happen on the run's producing goroutine while consumers of the
// event stream may read from their own goroutine, so access is guarded.
type Environment struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewEnvironment returns an empty Environment.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]any)}
}

// Add upserts a value under key. Last write wins; there are no error
// conditions and nothing is ever implicitly deleted during a run.
func (e *Environment) Add(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = value
}

// Get returns the value stored under key. A missing key yields (nil, false),
// never an error; callers must handle absence.
func (e *Environment) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[key]
	return v, ok
}

// Len returns the number of stored keys.
func (e *Environment) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.values)
}

// Snapshot returns a copy of all entries. Mutating the returned map does not
// affect the Environment; values themselves are shared, not deep-copied.
func (e *Environment) Snapshot() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]any, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}
