package tools

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
)

// AvailableFunc reports whether the tool can serve the current run, with a
// human-readable reason when it cannot.
type AvailableFunc func(ctx context.Context, run *domain.Run) (bool, string)

// GateFunc is the cheap post-availability gate; false skips the tool
// silently.
type GateFunc func(ctx context.Context, run *domain.Run) bool

// RunFunc produces the tool's event sequence through emit.
type RunFunc func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error

// Config describes a function-backed tool. Name and Run are required; nil
// predicates default to permissive (always available, always run).
type Config struct {
	Name        string
	Description string
	Terminal    bool
	Metadata    map[string]any

	Available AvailableFunc
	OnlyIf    GateFunc
	Run       RunFunc
}

// Func adapts a plain function into the domain.Tool contract. It is the
// primary way hosts define tools; tool-specific configuration is captured
// by the closure at construction time.
type Func struct {
	cfg Config
}

var _ domain.Tool = (*Func)(nil)

// New builds a tool from cfg.
func New(cfg Config) (*Func, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("tool config: name is required")
	}
	if cfg.Run == nil {
		return nil, fmt.Errorf("tool config %q: run function is required", cfg.Name)
	}
	return &Func{cfg: cfg}, nil
}

// MustNew is New for assembly code with static configs; it panics on a
// config error.
func MustNew(cfg Config) *Func {
	f, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Func) Name() string { return f.cfg.Name }

func (f *Func) Description() string { return f.cfg.Description }

func (f *Func) Terminal() bool { return f.cfg.Terminal }

func (f *Func) Metadata() map[string]any { return f.cfg.Metadata }

func (f *Func) Available(ctx context.Context, run *domain.Run) (bool, string) {
	if f.cfg.Available == nil {
		return true, ""
	}
	return f.cfg.Available(ctx, run)
}

func (f *Func) ShouldRun(ctx context.Context, run *domain.Run) bool {
	if f.cfg.OnlyIf == nil {
		return true
	}
	return f.cfg.OnlyIf(ctx, run)
}

func (f *Func) Execute(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
	return f.cfg.Run(ctx, run, emit)
}
