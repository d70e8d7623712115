package domain

import (
	"context"
	"reflect"
	"testing"
)

type namedTool struct{ name string }

func (t namedTool) Name() string { return t.name }

func (namedTool) Description() string { return "" }

func (namedTool) Terminal() bool { return false }

func (namedTool) Metadata() map[string]any { return nil }

func (namedTool) Available(context.Context, *Run) (bool, string) { return true, "" }

func (namedTool) ShouldRun(context.Context, *Run) bool { return true }

func (namedTool) Execute(context.Context, *Run, EmitFunc) error { return nil }

func TestBranchOptionsOrdering(t *testing.T) {
	b := &Branch{ID: "root"}
	if opts := b.Options(); len(opts) != 0 {
		t.Fatalf("empty branch must have no options, got %v", opts)
	}

	b.AddTool(namedTool{name: "search"})
	b.AddTool(namedTool{name: "report"})
	b.AddChild(&Branch{ID: "analytics"})
	b.AddChild(&Branch{ID: "misc"})

	want := []string{"search", "report", "analytics", "misc"}
	if got := b.Options(); !reflect.DeepEqual(got, want) {
		t.Errorf("Options() = %v, want %v", got, want)
	}
}

func TestBranchLookups(t *testing.T) {
	b := &Branch{ID: "root"}
	b.AddTool(namedTool{name: "search"})
	child := &Branch{ID: "analytics"}
	b.AddChild(child)

	if got := b.Tool("search"); got == nil || got.Name() != "search" {
		t.Errorf("Tool lookup failed: %v", got)
	}
	if got := b.Tool("analytics"); got != nil {
		t.Error("child branch id must not resolve as a tool")
	}
	if got := b.Child("analytics"); got != child {
		t.Errorf("Child lookup failed: %v", got)
	}
	if got := b.Child("search"); got != nil {
		t.Error("tool name must not resolve as a child branch")
	}
	if child.ParentID != "root" {
		t.Errorf("AddChild must set ParentID, got %q", child.ParentID)
	}
}
