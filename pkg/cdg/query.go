package cdg

// Controls reports whether block a transitively controls block b: whether
// some branch decision in a determines if b runs at all. A block never
// controls itself, and unknown block IDs control nothing.
func (g *Graph) Controls(a, b string) bool {
	if a == b {
		return false
	}
	from, ok := g.NodeFor(a)
	if !ok {
		return false
	}
	to, ok := g.NodeFor(b)
	if !ok {
		return false
	}

	visited := make(map[*Node]bool, g.Len())
	stack := []*Node{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true
		found := false
		node.EachChild(func(child *Node, _ EdgeKind) bool {
			if child == to {
				found = true
				return false
			}
			if !visited[child] {
				stack = append(stack, child)
			}
			return true
		})
		if found {
			return true
		}
	}
	return false
}

// Influences reports whether a control relationship exists between two
// blocks in either direction.
func (g *Graph) Influences(a, b string) bool {
	return g.Controls(a, b) || g.Controls(b, a)
}

// Walk visits start and its descendants in preorder, children in true,
// false, other order. The walk stops early if fn returns false. Nodes
// reachable along several paths are visited once.
func (g *Graph) Walk(start *Node, fn func(node *Node, depth int) bool) {
	if start == nil || fn == nil {
		return
	}
	visited := make(map[*Node]bool, g.Len())
	g.walk(start, 0, fn, visited)
}

func (g *Graph) walk(node *Node, depth int, fn func(node *Node, depth int) bool, visited map[*Node]bool) bool {
	if visited[node] {
		return true
	}
	visited[node] = true
	if !fn(node, depth) {
		return false
	}
	ok := true
	node.EachChild(func(child *Node, _ EdgeKind) bool {
		if !g.walk(child, depth+1, fn, visited) {
			ok = false
			return false
		}
		return true
	})
	return ok
}
