// Package graph renders Inspect snapshots for humans: an indented ASCII
// tree for terminals and Mermaid flowchart syntax for documentation.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// ASCII renders the tree as an indented outline, root first. Tools are
// listed under their branch; terminal tools are marked. Branches not
// reachable from the root follow under a separate heading.
func ASCII(info domain.TreeInfo) string {
	var sb strings.Builder
	sb.WriteString(info.Name + "\n")

	byID := make(map[string]domain.BranchInfo, len(info.Branches))
	for _, b := range info.Branches {
		byID[b.ID] = b
	}

	printed := make(map[string]bool)
	var walk func(b domain.BranchInfo, indent string)
	walk = func(b domain.BranchInfo, indent string) {
		if printed[b.ID] {
			return
		}
		printed[b.ID] = true

		sb.WriteString(fmt.Sprintf("%s%s\n", indent, b.ID))
		for _, tool := range b.Tools {
			marker := ""
			if tool.Terminal {
				marker = " (terminal)"
			}
			sb.WriteString(fmt.Sprintf("%s  * %s%s\n", indent, tool.Name, marker))
		}
		for _, childID := range b.Children {
			if child, ok := byID[childID]; ok {
				walk(child, indent+"  ")
			} else {
				sb.WriteString(fmt.Sprintf("%s  %s (missing)\n", indent, childID))
			}
		}
	}

	if root := info.RootBranch(); root != nil {
		walk(*root, "  ")
	}

	var detached []domain.BranchInfo
	for _, b := range info.Branches {
		if !printed[b.ID] {
			detached = append(detached, b)
		}
	}
	if len(detached) > 0 {
		sb.WriteString("  [detached]\n")
		for _, b := range detached {
			walk(b, "    ")
		}
	}

	return sb.String()
}

// Mermaid produces Mermaid flowchart syntax from the snapshot. The root
// is a circle, tools are subroutine boxes, terminal tools are marked
// with a double arrow label.
func Mermaid(info domain.TreeInfo) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, b := range info.Branches {
		safeID := sanitizeMermaidID(b.ID)

		opener, closer := "[", "]"
		if b.Root {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, b.ID, closer))

		for _, childID := range b.Children {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(childID)))
		}
		for _, tool := range b.Tools {
			toolID := sanitizeMermaidID(b.ID + "_" + tool.Name)
			sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", toolID, tool.Name))
			arrow := "-->"
			if tool.Terminal {
				arrow = "-- \"terminal\" -->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, toolID))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
