package loam

// BranchMetadata represents the frontmatter of a branch document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type BranchMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Instruction string `json:"instruction" mapstructure:"instruction"`
	Status      string `json:"status" mapstructure:"status"`
	Description string `json:"description" mapstructure:"description"`
	Root        bool   `json:"root" mapstructure:"root"`
	Parent      string `json:"parent" mapstructure:"parent"`

	// Tools is polymorphic: a string references a host-registered tool
	// by name, a map declares the tool inline.
	Tools []any `json:"tools" mapstructure:"tools"`
}

// InlineTool is the decoded shape of an inline tool declaration.
type InlineTool struct {
	Name        string         `json:"name" mapstructure:"name"`
	Description string         `json:"description" mapstructure:"description"`
	Terminal    bool           `json:"terminal" mapstructure:"terminal"`
	DependsOn   []string       `json:"depends_on" mapstructure:"depends_on"`
	Metadata    map[string]any `json:"metadata" mapstructure:"metadata"`
}
