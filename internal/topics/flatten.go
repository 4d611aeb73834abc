package topics

// VisibleNode is one row of the flattened tree view. It carries everything
// the rendering side needs so it never has to walk the tree itself.
type VisibleNode struct {
	Name         string
	FullPath     string
	Depth        int
	HasChildren  bool
	HasMessages  bool
	MessageCount int
	Expanded     bool
}

// Flatten produces the ordered visible rows below root: a pre-order walk in
// lexicographic key order that only descends into expanded nodes. The root's
// direct children are always listed.
//
// Flatten is pure and safe to call repeatedly, but it is O(visible tree);
// callers cache the result and invalidate on a dirty flag instead of
// recomputing every frame.
func Flatten(root *Node) []VisibleNode {
	return flatten(root, 0, nil)
}

func flatten(node *Node, depth int, out []VisibleNode) []VisibleNode {
	for _, child := range node.SortedChildren() {
		out = append(out, VisibleNode{
			Name:         child.Name,
			FullPath:     child.FullPath,
			Depth:        depth,
			HasChildren:  len(child.Children) > 0,
			HasMessages:  len(child.Messages) > 0,
			MessageCount: child.MessageCount,
			Expanded:     child.Expanded,
		})
		if child.Expanded && len(child.Children) > 0 {
			out = flatten(child, depth+1, out)
		}
	}
	return out
}
