package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1 root + 2 children + 1 grandchild.
func sampleTree() []*Node {
	return []*Node{
		{
			ID: "root", Title: "Root", Content: "root content", Level: 0, Order: 0,
			Children: []*Node{
				{
					ID: "a", Title: "A", Content: "a content", Level: 1, Order: 0,
					Children: []*Node{
						{ID: "a1", Title: "A1", Content: "a1 content", Level: 2, Order: 0},
					},
				},
				{ID: "b", Title: "B", Content: "b content", Level: 1, Order: 1},
			},
		},
	}
}

func TestCountNodesAndMaxDepth(t *testing.T) {
	tree := sampleTree()

	assert.Equal(t, 4, CountNodes(tree))
	assert.Equal(t, 2, MaxDepth(tree))
	assert.Equal(t, 0, CountNodes(nil))
	assert.Equal(t, 0, MaxDepth(nil))
}

func TestFindNodeByID(t *testing.T) {
	tree := sampleTree()

	found := FindNodeByID(tree, "a1")
	require.NotNil(t, found)
	assert.Equal(t, "A1", found.Title)

	assert.Nil(t, FindNodeByID(tree, "missing"))
}

func TestFlattenBuildRoundTrip(t *testing.T) {
	tree := sampleTree()

	flat := FlattenNodes(tree)
	require.Len(t, flat, 4)
	// Depth-first order with derived parent ids.
	assert.Equal(t, "root", flat[0].ID)
	assert.Equal(t, "", flat[0].ParentID)
	assert.Equal(t, "a", flat[1].ID)
	assert.Equal(t, "root", flat[1].ParentID)
	assert.Equal(t, "a1", flat[2].ID)
	assert.Equal(t, "a", flat[2].ParentID)

	rebuilt := BuildTreeFromFlat(flat)
	require.Len(t, rebuilt, 1)
	assert.Equal(t, 4, CountNodes(rebuilt))

	root := rebuilt[0]
	require.Len(t, root.Children, 2)
	assert.Equal(t, "a", root.Children[0].ID)
	assert.Equal(t, "b", root.Children[1].ID)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, "a1", root.Children[0].Children[0].ID)
}

func TestBuildTreeDropsNodesWithoutID(t *testing.T) {
	flat := []FlatNode{
		{ID: "root", Content: "root", Level: 0},
		{ID: "", Content: "anonymous", ParentID: "root", Level: 1},
		{ID: "kept", Content: "kept", ParentID: "root", Level: 1},
	}

	tree := BuildTreeFromFlat(flat)
	require.Len(t, tree, 1)
	assert.Equal(t, 2, CountNodes(tree))
	assert.Nil(t, FindNodeByID(tree, ""))
}

func TestBuildTreeOrdersSiblings(t *testing.T) {
	flat := []FlatNode{
		{ID: "root", Level: 0},
		{ID: "second", ParentID: "root", Level: 1, Order: 1},
		{ID: "first", ParentID: "root", Level: 1, Order: 0},
	}

	tree := BuildTreeFromFlat(flat)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "first", tree[0].Children[0].ID)
	assert.Equal(t, "second", tree[0].Children[1].ID)
}

func TestValidateMindMapStructuralErrors(t *testing.T) {
	m := &MindMap{
		Title: "Broken",
		RootNodes: []*Node{
			{
				ID: "root", Level: 0,
				Children: []*Node{
					// Wrong level: should be 1.
					{ID: "skipped", Level: 3},
					// Duplicate id with root.
					{ID: "root", Level: 1},
				},
			},
		},
		Metadata: Metadata{TotalNodes: 3, MaxDepth: 3},
	}

	result := ValidateMindMap(m)
	assert.False(t, result.Valid())
	assert.NotEmpty(t, result.Errors)
}

func TestValidateMindMapCacheMismatchIsWarning(t *testing.T) {
	m := &MindMap{
		Title:     "Stale caches",
		RootNodes: sampleTree(),
		Metadata:  Metadata{TotalNodes: 99, MaxDepth: 7},
	}

	result := ValidateMindMap(m)
	assert.True(t, result.Valid(), "cache drift must not be a hard failure")
	assert.Len(t, result.Warnings, 2)
}

func TestValidateNodeDuplicateOrderIsWarning(t *testing.T) {
	node := &Node{
		ID: "p", Level: 0,
		Children: []*Node{
			{ID: "c1", Level: 1, Order: 0},
			{ID: "c2", Level: 1, Order: 0},
		},
	}

	result := ValidateNode(node)
	assert.True(t, result.Valid())
	assert.NotEmpty(t, result.Warnings)
}

func TestAutoLayoutGrid(t *testing.T) {
	tree := sampleTree()
	AutoLayout(tree)

	root := tree[0]
	assert.Equal(t, 0.0, root.Visual.X)
	assert.Equal(t, 0.0, root.Visual.Y)

	// Children sit on the level-1 row, spaced by width + 50.
	assert.Equal(t, 0.0, root.Children[0].Visual.X)
	assert.Equal(t, 150.0, root.Children[0].Visual.Y)
	assert.Equal(t, 250.0, root.Children[1].Visual.X)
	assert.Equal(t, 150.0, root.Children[1].Visual.Y)

	assert.Equal(t, 300.0, root.Children[0].Children[0].Visual.Y)
}

func TestDiff(t *testing.T) {
	before := sampleTree()
	after := sampleTree()

	// Modify one, remove one, add one.
	FindNodeByID(after, "b").Content = "changed"
	a := FindNodeByID(after, "a")
	a.Children = nil
	a.Children = append(a.Children, &Node{ID: "a2", Level: 2, Order: 0})

	result := Diff(before, after)
	assert.ElementsMatch(t, []string{"a2"}, result.Added)
	assert.ElementsMatch(t, []string{"a1"}, result.Removed)
	assert.Contains(t, result.Modified, "b")
	assert.NotContains(t, result.Modified, "root")
}

func TestWalkDepthFirstOrder(t *testing.T) {
	var order []string
	Walk(sampleTree(), func(n *Node) bool {
		order = append(order, n.ID)
		return true
	})
	assert.Equal(t, []string{"root", "a", "a1", "b"}, order)
}
