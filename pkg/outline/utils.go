package outline

import "sort"

// CountNodes returns the number of nodes reachable from the given roots.
func CountNodes(roots []*Node) int {
	count := 0
	walk(roots, func(n *Node) bool {
		count++
		return true
	})
	return count
}

// MaxDepth returns the maximum Level reached in the tree, or 0 for an
// empty tree.
func MaxDepth(roots []*Node) int {
	depth := 0
	walk(roots, func(n *Node) bool {
		if n.Level > depth {
			depth = n.Level
		}
		return true
	})
	return depth
}

// FindNodeByID searches the tree depth-first and returns the first node
// with the given id, or nil.
func FindNodeByID(roots []*Node, id string) *Node {
	var found *Node
	walk(roots, func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// FlattenNodes converts a tree into its flat representation, depth-first.
// ParentID is derived from the traversal, not trusted from the node.
func FlattenNodes(roots []*Node) []FlatNode {
	var flat []FlatNode
	var visit func(n *Node, parentID string)
	visit = func(n *Node, parentID string) {
		flat = append(flat, FlatNode{
			ID:        n.ID,
			Title:     n.Title,
			Content:   n.Content,
			ParentID:  parentID,
			Level:     n.Level,
			Order:     n.Order,
			Visual:    n.Visual,
			Citations: n.Citations,
		})
		for _, child := range n.Children {
			visit(child, n.ID)
		}
	}
	for _, root := range roots {
		visit(root, "")
	}
	return flat
}

// BuildTreeFromFlat reconstructs a tree from its flat representation.
// Nodes without an id are dropped silently: callers must assign ids
// before flattening, that is a precondition of the round-trip. Nodes
// whose parent is missing become roots. Siblings are ordered by Order.
func BuildTreeFromFlat(flat []FlatNode) []*Node {
	byID := make(map[string]*Node, len(flat))
	for _, f := range flat {
		if f.ID == "" {
			continue
		}
		byID[f.ID] = &Node{
			ID:        f.ID,
			Title:     f.Title,
			Content:   f.Content,
			ParentID:  f.ParentID,
			Level:     f.Level,
			Order:     f.Order,
			Visual:    f.Visual,
			Citations: f.Citations,
		}
	}

	var roots []*Node
	for _, f := range flat {
		if f.ID == "" {
			continue
		}
		node := byID[f.ID]
		if f.ParentID != "" {
			if parent, ok := byID[f.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortSiblings(roots)
	for _, n := range byID {
		sortSiblings(n.Children)
	}
	return roots
}

func sortSiblings(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Order < nodes[j].Order
	})
}

// walk visits nodes depth-first. The visitor returns false to stop.
func walk(roots []*Node, visit func(*Node) bool) bool {
	for _, n := range roots {
		if n == nil {
			continue
		}
		if !visit(n) {
			return false
		}
		if !walk(n.Children, visit) {
			return false
		}
	}
	return true
}

// Walk exposes the depth-first traversal for callers that need to stream
// nodes in document order (the generation endpoint does).
func Walk(roots []*Node, visit func(*Node) bool) {
	walk(roots, visit)
}
