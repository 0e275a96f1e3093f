package outline

const (
	defaultNodeWidth   = 200.0
	defaultNodeHeight  = 60.0
	horizontalGap      = 50.0
	defaultLevelHeight = 150.0
)

// AutoLayout assigns a deterministic grid position to every node in
// place: x = child index * (nodeWidth + 50), y = level * levelHeight.
// Width and height are filled when unset so the canvas always receives
// renderable boxes.
func AutoLayout(roots []*Node) {
	layoutSiblings(roots, 0)
}

func layoutSiblings(siblings []*Node, level int) {
	for i, n := range siblings {
		if n == nil {
			continue
		}
		if n.Visual.Width == 0 {
			n.Visual.Width = defaultNodeWidth
		}
		if n.Visual.Height == 0 {
			n.Visual.Height = defaultNodeHeight
		}
		n.Visual.X = float64(i) * (n.Visual.Width + horizontalGap)
		n.Visual.Y = float64(level) * defaultLevelHeight
		layoutSiblings(n.Children, level+1)
	}
}
