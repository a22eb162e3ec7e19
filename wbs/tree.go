package wbs

// =============================================================================
// TREE ASSEMBLER
// =============================================================================

// TreeNode wraps a WorkItem and its children in input order. Depth is the
// structural depth (roots are 0); it is independent of WorkItem.Level.
type TreeNode struct {
	Item     *WorkItem   `json:"item"`
	Depth    int         `json:"depth"`
	Children []*TreeNode `json:"children,omitempty"`
}

func (n *TreeNode) IsLeaf() bool { return len(n.Children) == 0 }

// Assemble builds the forest described by links. Nodes point into items, so
// the slice must not be reallocated while the forest is in use. Roots keep
// input order, as do the children of every node.
func Assemble(items []WorkItem, links *Links) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(items))
	for i := range items {
		if _, dup := nodes[items[i].GUID]; dup {
			continue
		}
		nodes[items[i].GUID] = &TreeNode{Item: &items[i]}
	}

	var forest []*TreeNode
	for i := range items {
		guid := items[i].GUID
		node := nodes[guid]
		if node == nil || node.Item != &items[i] {
			continue
		}
		parent, ok := links.Parent(guid)
		if !ok || nodes[parent] == nil {
			forest = append(forest, node)
			continue
		}
		nodes[parent].Children = append(nodes[parent].Children, node)
	}

	// Links are acyclic, so every node is reached exactly once from a root.
	Walk(forest, func(n *TreeNode) {
		for _, c := range n.Children {
			c.Depth = n.Depth + 1
		}
	})
	return forest
}

// Walk visits the forest depth-first, parents before children, siblings in
// order. The walk is iterative and visits each node at most once.
func Walk(forest []*TreeNode, fn func(*TreeNode)) {
	seen := make(map[*TreeNode]bool)
	stack := make([]*TreeNode, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, forest[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		fn(n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Flatten lists the forest in Walk order.
func Flatten(forest []*TreeNode) []*TreeNode {
	var out []*TreeNode
	Walk(forest, func(n *TreeNode) { out = append(out, n) })
	return out
}
