package decision

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
)

// First returns the engine's default policy as an explicit strategy: always
// pick the first option. Useful for wiring the deterministic fallback on
// purpose, and for single-option trees.
func First() domain.DecisionFunc {
	return func(ctx context.Context, instruction string, options []string, run *domain.Run) (string, error) {
		return options[0], nil
	}
}

// Fixed returns a scripted strategy that answers each decision point with
// the next queued choice, in order. When the queue is exhausted the
// strategy errors, which fails the run: a scripted traversal that needs
// more decisions than it was given is a broken script, not a fallback case.
func Fixed(choices ...string) domain.DecisionFunc {
	var mu sync.Mutex
	next := 0
	return func(ctx context.Context, instruction string, options []string, run *domain.Run) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(choices) {
			return "", fmt.Errorf("fixed strategy exhausted after %d choices (instruction %q)", len(choices), instruction)
		}
		choice := choices[next]
		next++
		return choice, nil
	}
}
