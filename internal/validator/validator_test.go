package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
)

func info(branches ...domain.BranchInfo) domain.TreeInfo {
	return domain.TreeInfo{Name: "test-tree", Branches: branches}
}

func TestValidateHealthyTree(t *testing.T) {
	ti := info(
		domain.BranchInfo{ID: "root", Root: true, Children: []string{"analysis"}},
		domain.BranchInfo{ID: "analysis", ParentID: "root", Tools: []domain.ToolInfo{
			{Name: "summarize", Terminal: true, BranchID: "analysis"},
		}},
	)
	if err := Validate(ti); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateMissingRoot(t *testing.T) {
	ti := info(domain.BranchInfo{ID: "orphan"})
	err := Validate(ti)
	if err == nil {
		t.Fatal("Validate() = nil, want missing-root error")
	}
	if !strings.Contains(err.Error(), "no root branch") {
		t.Errorf("error = %v, want it to mention the missing root", err)
	}
}

func TestCheckUnreachableBranch(t *testing.T) {
	ti := info(
		domain.BranchInfo{ID: "root", Root: true, Tools: []domain.ToolInfo{
			{Name: "done", Terminal: true, BranchID: "root"},
		}},
		domain.BranchInfo{ID: "island"},
	)

	findings := Check(ti)
	found := false
	for _, f := range findings {
		if f.Branch == "island" && f.Level == LevelError {
			found = true
		}
	}
	if !found {
		t.Fatalf("findings = %v, want error for unreachable branch %q", findings, "island")
	}
	if Validate(ti) == nil {
		t.Error("Validate() = nil, want error for unreachable branch")
	}
}

func TestCheckDanglingChildReference(t *testing.T) {
	ti := info(
		domain.BranchInfo{ID: "root", Root: true, Children: []string{"removed"}},
	)
	findings := Check(ti)
	found := false
	for _, f := range findings {
		if f.Branch == "removed" && f.Level == LevelError {
			found = true
		}
	}
	if !found {
		t.Fatalf("findings = %v, want error for dangling child %q", findings, "removed")
	}
}

func TestCheckWarningsDoNotFailValidation(t *testing.T) {
	// Dead-end branch and no terminal tool are both warnings.
	ti := info(
		domain.BranchInfo{ID: "root", Root: true, Children: []string{"empty"}},
		domain.BranchInfo{ID: "empty", ParentID: "root"},
	)

	findings := Check(ti)
	warnings := 0
	for _, f := range findings {
		if f.Level == LevelWarning {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("got %d warnings, want 2: %v", warnings, findings)
	}
	if err := Validate(ti); err != nil {
		t.Errorf("Validate() = %v, want nil for warning-only findings", err)
	}
}
