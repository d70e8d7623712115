package canopy

import (
	"log/slog"

	"github.com/aretw0/canopy/pkg/domain"
)

// Option defines a functional option for configuring a Tree.
type Option func(*Tree)

// WithLogger sets a structured logger for assembly and run diagnostics.
// Without it the Tree stays silent.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithDecision sets the tree-default decision strategy, used by every run
// that does not override it with WithDecisionFunc. Without one, runs fall
// back to the deterministic first-option policy.
func WithDecision(decide domain.DecisionFunc) Option {
	return func(t *Tree) {
		t.decide = decide
	}
}

type branchConfig struct {
	status      string
	description string
	root        bool
	parent      string
}

// BranchOption configures one AddBranch call.
type BranchOption func(*branchConfig)

// WithStatus sets the status message emitted when the branch is entered.
// Defaults to "Processing <id>...".
func WithStatus(status string) BranchOption {
	return func(c *branchConfig) {
		c.status = status
	}
}

// WithDescription sets the human-readable branch description.
func WithDescription(description string) BranchOption {
	return func(c *branchConfig) {
		c.description = description
	}
}

// AsRoot marks the branch as the tree's entry point. A later AsRoot branch
// replaces the previous root (logged, not an error).
func AsRoot() BranchOption {
	return func(c *branchConfig) {
		c.root = true
	}
}

// Under attaches the new branch as a child of an existing branch.
func Under(parentID string) BranchOption {
	return func(c *branchConfig) {
		c.parent = parentID
	}
}

type toolConfig struct {
	dependsOn []string
}

// ToolOption configures one AddTool call.
type ToolOption func(*toolConfig)

// DependsOn records the names of tools whose results this tool expects in
// the Environment. The metadata is surfaced by Inspect but never enforced
// by the traversal.
func DependsOn(toolNames ...string) ToolOption {
	return func(c *toolConfig) {
		c.dependsOn = toolNames
	}
}

type runConfig struct {
	collections []string
	history     []domain.Message
	metadata    map[string]any
	decide      domain.DecisionFunc
}

// RunOption configures one run.
type RunOption func(*runConfig)

// WithCollections attaches opaque data-set handles to the run.
func WithCollections(collections ...string) RunOption {
	return func(c *runConfig) {
		c.collections = collections
	}
}

// WithHistory attaches prior conversation turns to the run, oldest first.
func WithHistory(history ...domain.Message) RunOption {
	return func(c *runConfig) {
		c.history = history
	}
}

// WithRunMetadata merges caller-supplied annotations into the run metadata.
func WithRunMetadata(metadata map[string]any) RunOption {
	return func(c *runConfig) {
		c.metadata = metadata
	}
}

// WithDecisionFunc overrides the tree-default decision strategy for this
// run only.
func WithDecisionFunc(decide domain.DecisionFunc) RunOption {
	return func(c *runConfig) {
		c.decide = decide
	}
}
