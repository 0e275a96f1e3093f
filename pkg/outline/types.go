// Package outline defines the recursive mind map data contract shared by
// the synthesis engine, the persistence layer and the streaming endpoint,
// plus pure utilities over it (validation, counting, flattening, layout,
// diffing). Nothing in this package touches storage or the network.
package outline

// Citation is the attribution unit attached to extracted content and to
// individual nodes.
type Citation struct {
	Title        string `json:"title"`
	URL          string `json:"url,omitempty"`
	Author       string `json:"author,omitempty"`
	Excerpt      string `json:"excerpt,omitempty"`
	TimestampISO string `json:"timestampISO,omitempty"`
}

// Visual carries canvas placement for a node. The layout engine treats it
// as opaque apart from AutoLayout.
type Visual struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Color       string  `json:"color,omitempty"`
	Shape       string  `json:"shape"`
	IsCollapsed bool    `json:"isCollapsed"`
}

// Node is one element of the outline tree.
//
// Invariants: Level is non-negative and equals the parent's level + 1
// (roots are level 0); Order is unique among siblings; ID, once assigned,
// is unique within the whole map; Children recursively satisfy the same
// invariants.
type Node struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Content   string     `json:"content"`
	ParentID  string     `json:"parentId,omitempty"`
	Level     int        `json:"level"`
	Order     int        `json:"order"`
	Visual    Visual     `json:"visual"`
	Citations []Citation `json:"citations"`
	Children  []*Node    `json:"children,omitempty"`
}

// Metadata holds advisory cache fields. TotalNodes and MaxDepth are
// recomputed by the validator and flagged as warnings on mismatch, never
// hard failures.
type Metadata struct {
	TotalNodes int    `json:"totalNodes"`
	MaxDepth   int    `json:"maxDepth"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// MindMap is the whole outline document.
type MindMap struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Complexity  string   `json:"complexity"`
	RootNodes   []*Node  `json:"rootNodes"`
	Metadata    Metadata `json:"metadata"`
}

// FlatNode is the flat-list-with-parentId representation used by the
// persistence layer. The tree form is a derived, disposable view.
type FlatNode struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Content   string     `json:"content"`
	ParentID  string     `json:"parentId,omitempty"`
	Level     int        `json:"level"`
	Order     int        `json:"order"`
	Visual    Visual     `json:"visual"`
	Citations []Citation `json:"citations"`
}
