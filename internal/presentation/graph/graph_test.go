package graph

import (
	"strings"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
)

func snapshot() domain.TreeInfo {
	return domain.TreeInfo{
		Name: "demo",
		Branches: []domain.BranchInfo{
			{
				ID:       "root",
				Root:     true,
				Children: []string{"search"},
				Tools:    []domain.ToolInfo{{Name: "answer", Terminal: true, BranchID: "root"}},
			},
			{
				ID:       "search",
				ParentID: "root",
				Tools:    []domain.ToolInfo{{Name: "web-search", BranchID: "search"}},
			},
			{ID: "orphan"},
		},
	}
}

func TestASCII(t *testing.T) {
	out := ASCII(snapshot())

	for _, want := range []string{"demo", "root", "* answer (terminal)", "search", "* web-search", "[detached]", "orphan"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if strings.Index(out, "root") > strings.Index(out, "search") {
		t.Errorf("root must precede its children:\n%s", out)
	}
}

func TestMermaid(t *testing.T) {
	out := Mermaid(snapshot())

	if !strings.HasPrefix(out, "graph TD\n") {
		t.Fatalf("missing header:\n%s", out)
	}
	for _, want := range []string{
		`root(("root"))`,
		"root --> search",
		`root_answer[["answer"]]`,
		`root -- "terminal" --> root_answer`,
		`search_web_search[["web-search"]]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
