package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/canopy/pkg/domain"
)

// DecisionNode is a stateless decision unit, constructed fresh per decision
// point from the enclosing branch's state. It is never persisted.
type DecisionNode struct {
	Instruction string
	Options     []string
	Decide      domain.DecisionFunc
}

// Choose resolves the chosen option name for this decision point.
//
// Empty options mark a malformed tree and abort the run
// (domain.ErrNoOptions), they are not a recoverable event. When a strategy
// is supplied its return value is validated for membership immediately;
// anything outside Options aborts the run with domain.ErrUnknownOption.
// Without a strategy the default policy is deterministic: the first option.
func (n DecisionNode) Choose(ctx context.Context, run *domain.Run) (string, error) {
	if len(n.Options) == 0 {
		return "", fmt.Errorf("%w (instruction %q)", domain.ErrNoOptions, n.Instruction)
	}
	if n.Decide == nil {
		return n.Options[0], nil
	}
	choice, err := n.Decide(ctx, n.Instruction, n.Options, run)
	if err != nil {
		return "", fmt.Errorf("decision strategy: %w", err)
	}
	if !slices.Contains(n.Options, choice) {
		return "", fmt.Errorf("%w: %q is not one of %v", domain.ErrUnknownOption, choice, n.Options)
	}
	return choice, nil
}
