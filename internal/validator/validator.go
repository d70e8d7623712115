package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// Level classifies a finding's severity.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Finding is one structural problem detected in a tree snapshot.
type Finding struct {
	Level   Level
	Branch  string
	Message string
}

func (f Finding) String() string {
	if f.Branch == "" {
		return fmt.Sprintf("[%s] %s", f.Level, f.Message)
	}
	return fmt.Sprintf("[%s] branch %q: %s", f.Level, f.Branch, f.Message)
}

// Check crawls the snapshot from its root and reports every structural
// problem found: a missing root, branches unreachable from the root,
// dangling child references, branches with no options, and trees without
// any reachable terminal tool (warning only).
func Check(info domain.TreeInfo) []Finding {
	var findings []Finding

	root := info.RootBranch()
	if root == nil {
		findings = append(findings, Finding{
			Level:   LevelError,
			Message: "no root branch defined",
		})
		return findings
	}

	reachable := make(map[string]bool)
	queue := []string{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true

		b := info.Branch(id)
		if b == nil {
			findings = append(findings, Finding{
				Level:   LevelError,
				Branch:  id,
				Message: "referenced as a child but not registered",
			})
			continue
		}
		if len(b.Tools) == 0 && len(b.Children) == 0 {
			findings = append(findings, Finding{
				Level:   LevelWarning,
				Branch:  id,
				Message: "has no options; traversal reaching it ends as a silent dead end",
			})
		}
		queue = append(queue, b.Children...)
	}

	hasTerminal := false
	for _, b := range info.Branches {
		if !reachable[b.ID] {
			findings = append(findings, Finding{
				Level:   LevelError,
				Branch:  b.ID,
				Message: "unreachable from the root branch",
			})
			continue
		}
		for _, tool := range b.Tools {
			if tool.Terminal {
				hasTerminal = true
			}
		}
	}
	if !hasTerminal {
		findings = append(findings, Finding{
			Level:   LevelWarning,
			Message: "no reachable terminal tool; runs only end by exhausting a traversal path",
		})
	}

	return findings
}

// Validate runs Check and converts error-level findings into a single
// aggregated error. Warnings alone do not fail validation.
func Validate(info domain.TreeInfo) error {
	var errs []string
	for _, f := range Check(info) {
		if f.Level == LevelError {
			errs = append(errs, f.String())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("found %d problems:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}
