// Package loam loads tree definitions from a loam markdown repository.
// Each branch is one document: frontmatter carries the branch fields and
// tool references, the markdown body is the fallback instruction.
package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/tools"
)

// Loader assembles a canopy.Tree from a loam repository of branch
// documents.
type Loader struct {
	repo   *loam.TypedRepository[BranchMetadata]
	name   string
	tools  map[string]domain.Tool
	decide domain.DecisionFunc
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTools registers host tool implementations by name. Documents
// reference them as plain strings in their tools list; inline
// declarations with a matching name are bound to the implementation.
func WithTools(impls map[string]domain.Tool) LoaderOption {
	return func(l *Loader) {
		l.tools = impls
	}
}

// WithName overrides the tree name derived from the repository path.
func WithName(name string) LoaderOption {
	return func(l *Loader) {
		l.name = name
	}
}

// WithDecision sets the assembled tree's default decision strategy.
func WithDecision(decide domain.DecisionFunc) LoaderOption {
	return func(l *Loader) {
		l.decide = decide
	}
}

// WithLoaderLogger sets the logger passed to the assembled tree.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader over an existing typed repository.
func New(repo *loam.TypedRepository[BranchMetadata], opts ...LoaderOption) *Loader {
	l := &Loader{
		repo:   repo,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open initializes a loam repository at path and returns a Loader for
// it. Strict mode keeps numeric frontmatter types consistent across
// serializers; read-only mode avoids loam's sandbox behavior, since the
// loader never writes.
func Open(path string, opts ...LoaderOption) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	l := New(loam.NewTypedRepository[BranchMetadata](repo), opts...)
	if l.name == "" {
		l.name = filepath.Base(absPath)
	}
	return l, nil
}

// document is one branch definition after ID normalization.
type document struct {
	id   string
	meta BranchMetadata
	body string
}

// Load assembles and validates the tree. Assembly goes through the
// Tree's mutation surface, so duplicate ids and dangling parents fail
// the same way they would in code.
func (l *Loader) Load(ctx context.Context) (*canopy.Tree, error) {
	docs, err := l.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	pending := make([]document, 0, len(docs))
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: branch '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		pending = append(pending, document{id: id, meta: doc.Data, body: doc.Content})
	}

	name := l.name
	if name == "" {
		name = "tree"
	}
	opts := []canopy.Option{canopy.WithLogger(l.logger)}
	if l.decide != nil {
		opts = append(opts, canopy.WithDecision(l.decide))
	}
	tree := canopy.New(name, opts...)

	// Branches are inserted parents-first so Under always finds its
	// target; a round with no progress means a parent reference is
	// dangling (or cyclic).
	for len(pending) > 0 {
		progressed := false
		remaining := pending[:0]
		for _, doc := range pending {
			parent := trimExtension(doc.meta.Parent)
			if parent != "" && tree.Branch(parent) == nil {
				remaining = append(remaining, doc)
				continue
			}
			if err := l.addBranch(tree, doc, parent); err != nil {
				return nil, err
			}
			progressed = true
		}
		if !progressed {
			ids := make([]string, len(remaining))
			for i, doc := range remaining {
				ids[i] = doc.id
			}
			return nil, fmt.Errorf("unresolvable parent references for branches: %s", strings.Join(ids, ", "))
		}
		pending = remaining
	}

	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("loaded tree is invalid: %w", err)
	}

	l.logger.Info("tree loaded", "tree", name, "branches", len(seen))
	return tree, nil
}

func (l *Loader) addBranch(tree *canopy.Tree, doc document, parent string) error {
	instruction := doc.meta.Instruction
	if instruction == "" {
		instruction = strings.TrimSpace(doc.body)
	}

	branchOpts := []canopy.BranchOption{}
	if doc.meta.Status != "" {
		branchOpts = append(branchOpts, canopy.WithStatus(doc.meta.Status))
	}
	if doc.meta.Description != "" {
		branchOpts = append(branchOpts, canopy.WithDescription(doc.meta.Description))
	}
	if doc.meta.Root {
		branchOpts = append(branchOpts, canopy.AsRoot())
	}
	if parent != "" {
		branchOpts = append(branchOpts, canopy.Under(parent))
	}

	if err := tree.AddBranch(doc.id, instruction, branchOpts...); err != nil {
		return fmt.Errorf("branch '%s': %w", doc.id, err)
	}

	for _, item := range doc.meta.Tools {
		tool, dependsOn, err := l.resolveTool(doc.id, item)
		if err != nil {
			return err
		}
		if err := tree.AddTool(tool, doc.id, canopy.DependsOn(dependsOn...)); err != nil {
			return fmt.Errorf("branch '%s': %w", doc.id, err)
		}
	}
	return nil
}

// resolveTool handles the polymorphic tools list: a string references a
// host-registered implementation, a map is an inline declaration.
func (l *Loader) resolveTool(branchID string, item any) (domain.Tool, []string, error) {
	switch v := item.(type) {
	case string:
		impl, ok := l.tools[v]
		if !ok {
			return nil, nil, fmt.Errorf("branch '%s': tool '%s' is not registered with the loader", branchID, v)
		}
		return impl, nil, nil

	case map[string]any, map[any]any:
		var decl InlineTool
		if err := mapstructure.Decode(v, &decl); err != nil {
			return nil, nil, fmt.Errorf("branch '%s': failed to decode inline tool: %w", branchID, err)
		}
		if decl.Name == "" {
			return nil, nil, fmt.Errorf("branch '%s': inline tool missing name", branchID)
		}

		// A host implementation with the declared name wins; the
		// declaration then only contributes dependency metadata.
		if impl, ok := l.tools[decl.Name]; ok {
			return impl, decl.DependsOn, nil
		}
		return l.stubTool(decl), decl.DependsOn, nil

	default:
		return nil, nil, fmt.Errorf("branch '%s': invalid tool definition type: %T", branchID, item)
	}
}

// stubTool carries an inline declaration that has no implementation
// bound. It keeps Inspect and Validate honest, and fails loudly if a
// run ever reaches it.
func (l *Loader) stubTool(decl InlineTool) domain.Tool {
	return tools.MustNew(tools.Config{
		Name:        decl.Name,
		Description: decl.Description,
		Terminal:    decl.Terminal,
		Metadata:    decl.Metadata,
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			return fmt.Errorf("tool '%s' is declared but has no implementation bound", decl.Name)
		},
	})
}

// Watch relays repository change events. The channel carries changed
// document ids; callers typically respond by calling Load again.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
