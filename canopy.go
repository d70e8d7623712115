package canopy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/internal/runtime"
	"github.com/aretw0/canopy/internal/validator"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Tree is the orchestrator: it owns the branch and tool registries, the root
// branch and the run entry point. A Tree is assembled once through AddBranch
// and AddTool before the first run; the registries are not synchronized, so
// mutating them while a run is in flight is unsupported.
type Tree struct {
	name string

	branches   map[string]*domain.Branch
	tools      map[string]domain.Tool
	toolBranch map[string]string
	dependsOn  map[string][]string
	root       *domain.Branch

	decide domain.DecisionFunc
	logger *slog.Logger
}

var _ ports.Engine = (*Tree)(nil)

// New creates an empty Tree with the given name. The name identifies the
// tree in completion events, logs and transports.
func New(name string, opts ...Option) *Tree {
	t := &Tree{
		name:       name,
		branches:   make(map[string]*domain.Branch),
		tools:      make(map[string]domain.Tool),
		toolBranch: make(map[string]string),
		dependsOn:  make(map[string][]string),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("tree", name)
	return t
}

// Name returns the tree's name.
func (t *Tree) Name() string { return t.name }

// AddBranch registers a new branch. Branch ids are unique within a Tree;
// a collision fails with domain.ErrBranchExists rather than silently
// replacing the previous branch. Use AsRoot to mark the entry branch and
// Under to attach the branch to an existing parent.
func (t *Tree) AddBranch(id, instruction string, opts ...BranchOption) error {
	if _, ok := t.branches[id]; ok {
		return fmt.Errorf("branch %q: %w", id, domain.ErrBranchExists)
	}

	cfg := branchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &domain.Branch{
		ID:            id,
		Instruction:   instruction,
		StatusMessage: cfg.status,
		Description:   cfg.description,
		Root:          cfg.root,
	}
	if b.StatusMessage == "" {
		b.StatusMessage = fmt.Sprintf("Processing %s...", id)
	}

	if cfg.parent != "" {
		parent, ok := t.branches[cfg.parent]
		if !ok {
			return fmt.Errorf("parent branch %q: %w", cfg.parent, domain.ErrBranchNotFound)
		}
		parent.AddChild(b)
	}

	if cfg.root {
		if t.root != nil {
			// Re-rooting is allowed but almost always a mistake in assembly
			// code, so it is logged rather than silent.
			t.logger.Warn("replacing root branch", "old", t.root.ID, "new", id)
			t.root.Root = false
		}
		t.root = b
	}

	t.branches[id] = b
	t.logger.Debug("branch added", "branch", id, "root", cfg.root, "parent", cfg.parent)
	return nil
}

// AddTool registers tool under an existing branch. Tool names are unique
// within a Tree; a collision fails with domain.ErrToolExists. DependsOn
// metadata is descriptive only and never enforced by the traversal.
func (t *Tree) AddTool(tool domain.Tool, branchID string, opts ...ToolOption) error {
	b, ok := t.branches[branchID]
	if !ok {
		return fmt.Errorf("branch %q: %w", branchID, domain.ErrBranchNotFound)
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, ok := t.tools[name]; ok {
		return fmt.Errorf("tool %q: %w", name, domain.ErrToolExists)
	}

	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	b.AddTool(tool)
	t.tools[name] = tool
	t.toolBranch[name] = branchID
	if len(cfg.dependsOn) > 0 {
		t.dependsOn[name] = cfg.dependsOn
	}
	t.logger.Debug("tool added", "tool", name, "branch", branchID, "terminal", tool.Terminal())
	return nil
}

// RemoveBranch removes a branch from the registry. It does not cascade to
// child branches and does not detach the branch from its parent's child
// list; Validate reports the orphans such a removal leaves behind.
func (t *Tree) RemoveBranch(id string) error {
	b, ok := t.branches[id]
	if !ok {
		return fmt.Errorf("branch %q: %w", id, domain.ErrBranchNotFound)
	}
	delete(t.branches, id)
	if t.root == b {
		t.root = nil
	}
	t.logger.Debug("branch removed", "branch", id)
	return nil
}

// RemoveTool removes a tool from the registry and from its owning branch's
// tool list.
func (t *Tree) RemoveTool(name string) error {
	if _, ok := t.tools[name]; !ok {
		return fmt.Errorf("tool %q: %w", name, domain.ErrToolNotFound)
	}
	if b, ok := t.branches[t.toolBranch[name]]; ok {
		kept := b.Tools[:0]
		for _, tool := range b.Tools {
			if tool.Name() != name {
				kept = append(kept, tool)
			}
		}
		b.Tools = kept
	}
	delete(t.tools, name)
	delete(t.toolBranch, name)
	delete(t.dependsOn, name)
	t.logger.Debug("tool removed", "tool", name)
	return nil
}

// Branch returns the registered branch with the given id, or nil.
func (t *Tree) Branch(id string) *domain.Branch { return t.branches[id] }

// Tool returns the registered tool with the given name, or nil.
func (t *Tree) Tool(name string) domain.Tool { return t.tools[name] }

// Inspect returns a declarative snapshot of the assembled tree for
// validation, visualization and transport-level introspection. Branches
// appear root-first, then in depth-first order; branches detached from the
// root follow at the end.
func (t *Tree) Inspect() domain.TreeInfo {
	info := domain.TreeInfo{Name: t.name}
	seen := make(map[string]bool)

	var visit func(b *domain.Branch)
	visit = func(b *domain.Branch) {
		if seen[b.ID] {
			return
		}
		seen[b.ID] = true
		info.Branches = append(info.Branches, t.branchInfo(b))
		for _, c := range b.Children {
			visit(c)
		}
	}
	if t.root != nil {
		visit(t.root)
	}
	for _, b := range sortedBranches(t.branches) {
		if !seen[b.ID] {
			info.Branches = append(info.Branches, t.branchInfo(b))
		}
	}
	return info
}

func (t *Tree) branchInfo(b *domain.Branch) domain.BranchInfo {
	bi := domain.BranchInfo{
		ID:          b.ID,
		Instruction: b.Instruction,
		Status:      b.StatusMessage,
		Description: b.Description,
		ParentID:    b.ParentID,
		Root:        b.Root,
	}
	for _, tool := range b.Tools {
		bi.Tools = append(bi.Tools, domain.ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			Terminal:    tool.Terminal(),
			BranchID:    b.ID,
			DependsOn:   t.dependsOn[tool.Name()],
			Metadata:    tool.Metadata(),
		})
	}
	for _, c := range b.Children {
		bi.Children = append(bi.Children, c.ID)
	}
	return bi
}

// Validate checks the assembled tree for structural problems a single
// mutation cannot see: a missing root, branches unreachable from the root,
// and branches with no options.
func (t *Tree) Validate() error {
	return validator.Validate(t.Inspect())
}

// Run starts a traversal for prompt and returns its ordered event stream.
//
// The returned channel is unbuffered: every event must be received before
// the engine proceeds, so a slow consumer stalls the run and event order is
// exactly production order. The channel closes after the terminal event
// (Completed, or a non-recoverable Error), or without one when ctx is
// canceled before the run finishes.
func (t *Tree) Run(ctx context.Context, prompt string, opts ...RunOption) <-chan domain.Event {
	return t.RunWith(ctx, domain.NewRun(prompt), opts...)
}

// RunWith starts a traversal on an explicitly constructed run context.
// Callers that need the run's Environment after the stream closes build the
// run themselves and keep the reference.
func (t *Tree) RunWith(ctx context.Context, run *domain.Run, opts ...RunOption) <-chan domain.Event {
	cfg := runConfig{decide: t.decide}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.collections) > 0 {
		run.Collections = cfg.collections
	}
	if len(cfg.history) > 0 {
		run.History = cfg.history
	}
	for k, v := range cfg.metadata {
		run.Metadata[k] = v
	}

	t.logger.Info("run started", "run_id", run.ID)
	eng := runtime.New(t.name, t.root, cfg.decide, t.logger)
	return eng.Run(ctx, run)
}

// Execute implements ports.Engine for transport adapters.
func (t *Tree) Execute(ctx context.Context, spec ports.RunSpec) <-chan domain.Event {
	return t.Run(ctx, spec.Prompt,
		WithCollections(spec.Collections...),
		WithHistory(spec.History...),
		WithRunMetadata(spec.Metadata),
	)
}

func sortedBranches(m map[string]*domain.Branch) []*domain.Branch {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	// Deterministic snapshot order keeps Inspect output stable for tests
	// and diffs.
	sort.Strings(ids)
	out := make([]*domain.Branch, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}
