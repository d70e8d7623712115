package domain

// TreeInfo is a declarative snapshot of an assembled tree, used for
// validation, visualization and transport-level introspection.
type TreeInfo struct {
	Name     string       `json:"name"`
	Branches []BranchInfo `json:"branches"`
}

// BranchInfo describes one branch of the snapshot.
type BranchInfo struct {
	ID          string     `json:"id"`
	Instruction string     `json:"instruction"`
	Status      string     `json:"status,omitempty"`
	Description string     `json:"description,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"`
	Root        bool       `json:"root"`
	Tools       []ToolInfo `json:"tools,omitempty"`
	Children    []string   `json:"children,omitempty"`
}

// ToolInfo describes one registered tool, including the registry metadata
// the engine tracks about it (owning branch, declared upstream dependencies).
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Terminal    bool           `json:"terminal"`
	BranchID    string         `json:"branch_id"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Branch returns the snapshot entry with the given id, or nil.
func (ti TreeInfo) Branch(id string) *BranchInfo {
	for i := range ti.Branches {
		if ti.Branches[i].ID == id {
			return &ti.Branches[i]
		}
	}
	return nil
}

// RootBranch returns the snapshot's root entry, or nil when none is marked.
func (ti TreeInfo) RootBranch() *BranchInfo {
	for i := range ti.Branches {
		if ti.Branches[i].Root {
			return &ti.Branches[i]
		}
	}
	return nil
}
