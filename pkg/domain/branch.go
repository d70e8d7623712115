package domain

// Branch is a named decision point grouping sibling tools and/or child
// branches, plus the natural-language instruction used to decide among them
// and a status message emitted on entry.
type Branch struct {
	ID            string
	Instruction   string
	StatusMessage string
	Description   string

	// ParentID is empty only for the root branch.
	ParentID string

	// Root marks the single entry branch of a Tree.
	Root bool

	Tools    []Tool
	Children []*Branch
}

// AddTool appends t to the branch. Name uniqueness is enforced at the Tree
// level, not here.
func (b *Branch) AddTool(t Tool) {
	b.Tools = append(b.Tools, t)
}

// AddChild appends c as a child branch and records the parent relation.
func (b *Branch) AddChild(c *Branch) {
	c.ParentID = b.ID
	b.Children = append(b.Children, c)
}

// Options returns the decision options of the branch: tool names first, then
// child branch ids, each in insertion order. Tool names take decision
// priority, which matters for the default first-option policy. An empty
// result marks the branch as a dead end.
func (b *Branch) Options() []string {
	out := make([]string, 0, len(b.Tools)+len(b.Children))
	for _, t := range b.Tools {
		out = append(out, t.Name())
	}
	for _, c := range b.Children {
		out = append(out, c.ID)
	}
	return out
}

// Tool returns the owned tool with the given name, or nil.
func (b *Branch) Tool(name string) Tool {
	for _, t := range b.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// Child returns the owned child branch with the given id, or nil.
func (b *Branch) Child(id string) *Branch {
	for _, c := range b.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}
