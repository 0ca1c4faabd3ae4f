// Package cdg computes control dependence graphs. A block B is
// control-dependent on a branch A when A's outcome decides whether B
// executes at all. Dependences are derived from the CFG and its
// post-dominator tree following Ferrante, Ottenstein, and Warren.
package cdg

// EdgeKind labels a dependence edge with the branch outcome that induces it.
type EdgeKind string

const (
	EdgeKindTrue  EdgeKind = "true"  // then arm of a two-way conditional
	EdgeKindFalse EdgeKind = "false" // else arm of a two-way conditional
	EdgeKindOther EdgeKind = "other" // unconditional, switch arm, exception
)

// Node is one vertex of the control dependence graph: either a CFG block or
// a synthetic region grouping nodes that share identical dependences. Links
// are symmetric; child lists are kept per edge kind.
type Node struct {
	id            int
	block         string
	region        bool
	parents       []*Node
	trueChildren  []*Node
	falseChildren []*Node
	otherChildren []*Node
}

// ID returns the node's creation ordinal. IDs are stable across identical
// builds and dense from zero.
func (n *Node) ID() int {
	return n.id
}

// Block returns the CFG block this node stands for, empty for region nodes.
func (n *Node) Block() string {
	return n.block
}

// IsRegion reports whether the node is a synthetic region. The graph root
// is a region.
func (n *Node) IsRegion() bool {
	return n.region
}

// Parents returns the node's parents in link order. Callers must not modify
// the returned slice.
func (n *Node) Parents() []*Node {
	return n.parents
}

// Children returns the node's children linked under the given kind, in link
// order. Callers must not modify the returned slice.
func (n *Node) Children(kind EdgeKind) []*Node {
	return *n.childList(kind)
}

// NumParents returns the number of distinct parent nodes.
func (n *Node) NumParents() int {
	return len(n.parents)
}

// NumChildren returns the number of child links across all kinds.
func (n *Node) NumChildren() int {
	return len(n.trueChildren) + len(n.falseChildren) + len(n.otherChildren)
}

// EachChild visits the node's children staged by kind: true children first,
// then false, then other. Returning false from fn stops the visit.
func (n *Node) EachChild(fn func(child *Node, kind EdgeKind) bool) {
	for _, kind := range []EdgeKind{EdgeKindTrue, EdgeKindFalse, EdgeKindOther} {
		for _, child := range *n.childList(kind) {
			if !fn(child, kind) {
				return
			}
		}
	}
}

func (n *Node) childList(kind EdgeKind) *[]*Node {
	switch kind {
	case EdgeKindTrue:
		return &n.trueChildren
	case EdgeKindFalse:
		return &n.falseChildren
	default:
		return &n.otherChildren
	}
}

func (n *Node) hasChild(child *Node, kind EdgeKind) bool {
	for _, existing := range *n.childList(kind) {
		if existing == child {
			return true
		}
	}
	return false
}

func (n *Node) hasParent(parent *Node) bool {
	for _, existing := range n.parents {
		if existing == parent {
			return true
		}
	}
	return false
}

// addChild links child under the given kind and mirrors the link on the
// child's parent list. Adding the same link twice is a no-op.
func (n *Node) addChild(child *Node, kind EdgeKind) {
	if n.hasChild(child, kind) {
		return
	}
	list := n.childList(kind)
	*list = append(*list, child)
	if !child.hasParent(n) {
		child.parents = append(child.parents, n)
	}
}

// Graph is a control dependence graph for one function. The graph owns its
// nodes and is immutable once built; it is safe for concurrent reads.
type Graph struct {
	functionName string
	root         *Node
	nodes        []*Node
	byBlock      map[string]*Node
}

// FunctionName returns the name of the function the graph was built for.
func (g *Graph) FunctionName() string {
	return g.functionName
}

// Root returns the distinguished root. It is a region node with no parents;
// everything not dependent on any real branch hangs off it.
func (g *Graph) Root() *Node {
	return g.root
}

// Nodes returns all nodes in creation order, root first. Callers must not
// modify the returned slice.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of nodes, root and regions included.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NodeFor returns the node standing for the given CFG block. The second
// result is false for blocks the graph has never seen; region nodes are
// never returned.
func (g *Graph) NodeFor(block string) (*Node, bool) {
	node, ok := g.byBlock[block]
	return node, ok
}

func (g *Graph) newNode(block string) *Node {
	node := &Node{id: len(g.nodes), block: block}
	g.nodes = append(g.nodes, node)
	g.byBlock[block] = node
	return node
}

func (g *Graph) newRegion() *Node {
	node := &Node{id: len(g.nodes), region: true}
	g.nodes = append(g.nodes, node)
	return node
}
