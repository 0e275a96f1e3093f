package outline

import "fmt"

// ValidationResult separates hard schema violations from advisory
// warnings. Warnings never block persistence.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateNode checks a single subtree: non-negative levels, child level
// = parent level + 1, and recursively the same for children. Duplicate
// sibling orders are warnings.
func ValidateNode(node *Node) *ValidationResult {
	result := &ValidationResult{}
	if node == nil {
		result.errorf("node is nil")
		return result
	}
	validateSubtree(node, result)
	return result
}

// ValidateMindMap checks the whole document: every subtree, global id
// uniqueness, and the advisory TotalNodes/MaxDepth caches (mismatch is a
// warning, the caches are not the source of truth).
func ValidateMindMap(m *MindMap) *ValidationResult {
	result := &ValidationResult{}
	if m == nil {
		result.errorf("mind map is nil")
		return result
	}
	if m.Title == "" {
		result.errorf("mind map title is required")
	}
	if len(m.RootNodes) == 0 {
		result.errorf("mind map has no root nodes")
	}

	for _, root := range m.RootNodes {
		if root == nil {
			result.errorf("root node is nil")
			continue
		}
		if root.Level != 0 {
			result.errorf("root node %q has level %d, want 0", root.ID, root.Level)
		}
		validateSubtree(root, result)
	}
	checkDuplicateOrders(m.RootNodes, "root", result)

	seen := make(map[string]bool)
	walk(m.RootNodes, func(n *Node) bool {
		if n.ID != "" {
			if seen[n.ID] {
				result.errorf("duplicate node id %q", n.ID)
			}
			seen[n.ID] = true
		}
		return true
	})

	total := CountNodes(m.RootNodes)
	if m.Metadata.TotalNodes != total {
		result.warnf("metadata.totalNodes is %d, actual count is %d", m.Metadata.TotalNodes, total)
	}
	depth := MaxDepth(m.RootNodes)
	if m.Metadata.MaxDepth != depth {
		result.warnf("metadata.maxDepth is %d, actual depth is %d", m.Metadata.MaxDepth, depth)
	}

	return result
}

func validateSubtree(node *Node, result *ValidationResult) {
	if node.Level < 0 {
		result.errorf("node %q has negative level %d", node.ID, node.Level)
	}
	for _, child := range node.Children {
		if child == nil {
			result.errorf("node %q has a nil child", node.ID)
			continue
		}
		if child.Level != node.Level+1 {
			result.errorf("node %q has level %d under parent level %d", child.ID, child.Level, node.Level)
		}
		validateSubtree(child, result)
	}
	checkDuplicateOrders(node.Children, node.ID, result)
}

func checkDuplicateOrders(siblings []*Node, parent string, result *ValidationResult) {
	seen := make(map[int]bool)
	for _, n := range siblings {
		if n == nil {
			continue
		}
		if seen[n.Order] {
			result.warnf("duplicate sibling order %d under %q", n.Order, parent)
		}
		seen[n.Order] = true
	}
}
