package tools

import (
	"context"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
)

func noopRun(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
	return nil
}

func TestNewRequiresNameAndRun(t *testing.T) {
	if _, err := New(Config{Run: noopRun}); err == nil {
		t.Error("New without name succeeded")
	}
	if _, err := New(Config{Name: "x"}); err == nil {
		t.Error("New without run function succeeded")
	}
	if _, err := New(Config{Name: "x", Run: noopRun}); err != nil {
		t.Errorf("New with minimal config: %v", err)
	}
}

func TestNilPredicatesDefaultPermissive(t *testing.T) {
	tool := MustNew(Config{Name: "x", Run: noopRun})
	ctx := context.Background()
	run := domain.NewRun("q")

	ok, reason := tool.Available(ctx, run)
	if !ok || reason != "" {
		t.Errorf("Available = (%v, %q), want (true, \"\")", ok, reason)
	}
	if !tool.ShouldRun(ctx, run) {
		t.Error("ShouldRun = false, want true")
	}
	if tool.Terminal() {
		t.Error("Terminal = true, want false by default")
	}
}

func TestConfigFieldsFlowThrough(t *testing.T) {
	gated := false
	tool := MustNew(Config{
		Name:        "search",
		Description: "find things",
		Terminal:    true,
		Metadata:    map[string]any{"team": "retrieval"},
		Available: func(ctx context.Context, run *domain.Run) (bool, string) {
			return false, "disabled"
		},
		OnlyIf: func(ctx context.Context, run *domain.Run) bool {
			gated = true
			return false
		},
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			return emit(ctx, domain.Result{Data: "hit"})
		},
	})

	ctx := context.Background()
	run := domain.NewRun("q")

	if tool.Name() != "search" || tool.Description() != "find things" || !tool.Terminal() {
		t.Errorf("identity fields lost: %q %q %v", tool.Name(), tool.Description(), tool.Terminal())
	}
	if tool.Metadata()["team"] != "retrieval" {
		t.Errorf("metadata lost: %v", tool.Metadata())
	}

	ok, reason := tool.Available(ctx, run)
	if ok || reason != "disabled" {
		t.Errorf("Available = (%v, %q), want (false, disabled)", ok, reason)
	}
	if tool.ShouldRun(ctx, run) || !gated {
		t.Error("OnlyIf gate not consulted")
	}

	var emitted []domain.Event
	emit := func(ctx context.Context, ev domain.Event) error {
		emitted = append(emitted, ev)
		return nil
	}
	if err := tool.Execute(ctx, run, emit); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(emitted) != 1 || emitted[0].Kind() != domain.KindResult {
		t.Errorf("emitted = %v, want one Result", emitted)
	}
}

func TestMustNewPanicsOnBadConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew with empty config did not panic")
		}
	}()
	MustNew(Config{})
}
