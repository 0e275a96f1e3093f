package outline

import "reflect"

// DiffResult lists node ids added, removed, or modified between two
// trees. Nodes without ids cannot be matched and are ignored.
type DiffResult struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// Diff compares two trees set-wise by node id. A node present in both is
// reported as modified when its content differs by deep equality
// (children excluded, they are compared through their own ids).
func Diff(before, after []*Node) *DiffResult {
	result := &DiffResult{
		Added:    []string{},
		Removed:  []string{},
		Modified: []string{},
	}

	oldNodes := indexByID(before)
	newNodes := indexByID(after)

	walk(after, func(n *Node) bool {
		if n.ID == "" {
			return true
		}
		old, existed := oldNodes[n.ID]
		if !existed {
			result.Added = append(result.Added, n.ID)
		} else if !sameNode(old, n) {
			result.Modified = append(result.Modified, n.ID)
		}
		return true
	})

	walk(before, func(n *Node) bool {
		if n.ID == "" {
			return true
		}
		if _, exists := newNodes[n.ID]; !exists {
			result.Removed = append(result.Removed, n.ID)
		}
		return true
	})

	return result
}

func indexByID(roots []*Node) map[string]*Node {
	index := make(map[string]*Node)
	walk(roots, func(n *Node) bool {
		if n.ID != "" {
			index[n.ID] = n
		}
		return true
	})
	return index
}

func sameNode(a, b *Node) bool {
	return a.Title == b.Title &&
		a.Content == b.Content &&
		a.Level == b.Level &&
		a.Order == b.Order &&
		reflect.DeepEqual(a.Visual, b.Visual) &&
		reflect.DeepEqual(a.Citations, b.Citations)
}
