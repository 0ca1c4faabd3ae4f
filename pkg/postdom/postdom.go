// Package postdom builds post-dominator trees over control flow graphs.
// A block X post-dominates Y when every path from Y to the function exit
// passes through X. The tree is rooted at a virtual exit block that all
// exit paths converge on.
package postdom

import (
	"fmt"

	"github.com/l3aro/go-control-deps/pkg/cfg"
)

// VirtualExit is the ID of the synthetic root block of the tree.
const VirtualExit = "__exit__"

// Tree is an immutable post-dominator tree for one function. It is safe for
// concurrent reads.
type Tree struct {
	functionName string
	idom         map[string]string
	depth        map[string]int
	children     map[string][]string
	order        []string
}

// TreeInfo is the serializable form of a Tree.
type TreeInfo struct {
	FunctionName            string            `json:"function_name"`
	VirtualExit             string            `json:"virtual_exit"`
	Blocks                  []string          `json:"blocks"`
	ImmediatePostDominators map[string]string `json:"immediate_post_dominators"`
}

// Build computes the post-dominator tree of the given CFG.
//
// The virtual exit is fed by every block without successors and by the
// exiting blocks of every cycle. Feeding it from inside cycles makes the
// analysis divergence sensitive: a loop that may iterate forever keeps the
// blocks after it from post-dominating the loop test, which is what makes
// loop exits control-dependent on the test.
//
// Build fails, returning no tree, when the CFG has no entry, when an edge
// references an unknown block, or when any reachable block ends up without
// an immediate post-dominator.
func Build(info *cfg.CFGInfo) (*Tree, error) {
	if info == nil {
		return nil, fmt.Errorf("nil CFG")
	}

	order := info.ReachableFromEntry()
	if len(order) == 0 {
		return nil, fmt.Errorf("function %s: no entry block", info.FunctionName)
	}

	reachable := make(map[string]bool, len(order))
	for _, id := range order {
		reachable[id] = true
	}
	for _, edge := range info.Edges {
		if _, ok := info.Blocks[edge.SourceID]; !ok {
			return nil, fmt.Errorf("function %s: edge source %s not in CFG", info.FunctionName, edge.SourceID)
		}
		if _, ok := info.Blocks[edge.TargetID]; !ok {
			return nil, fmt.Errorf("function %s: edge target %s not in CFG", info.FunctionName, edge.TargetID)
		}
	}

	succs := make(map[string][]string, len(order))
	preds := make(map[string][]string, len(order))
	for _, id := range order {
		succs[id] = info.Successors(id)
		preds[id] = info.PredecessorIDs(id)
	}

	cyclic := cycleFeeders(order, succs, preds)

	var feeders []string
	for _, id := range order {
		if len(succs[id]) == 0 || cyclic[id] {
			feeders = append(feeders, id)
		}
	}
	if len(feeders) == 0 {
		return nil, fmt.Errorf("function %s: no path reaches the exit", info.FunctionName)
	}

	idom, err := postDominatorMap(info.FunctionName, order, feeders, succs, preds, reachable)
	if err != nil {
		return nil, err
	}

	tree := &Tree{
		functionName: info.FunctionName,
		idom:         idom,
		depth:        make(map[string]int, len(order)+1),
		children:     make(map[string][]string, len(order)+1),
		order:        order,
	}
	for _, id := range order {
		parent := idom[id]
		tree.children[parent] = append(tree.children[parent], id)
	}
	tree.depth[VirtualExit] = 0
	queue := []string{VirtualExit}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, child := range tree.children[node] {
			tree.depth[child] = tree.depth[node] + 1
			queue = append(queue, child)
		}
	}

	return tree, nil
}

// cycleFeeders returns the blocks that give the virtual exit a view into
// cycles. For every strongly connected component that contains a cycle the
// feeders are its exiting blocks, where a path out of the cycle begins; a
// component no edge leaves feeds from its entry blocks instead.
func cycleFeeders(order []string, succs, preds map[string][]string) map[string]bool {
	comps := stronglyConnected(order, succs)

	compOf := make(map[string]int, len(order))
	for i, comp := range comps {
		for _, id := range comp {
			compOf[id] = i
		}
	}

	feeders := make(map[string]bool)
	for i, comp := range comps {
		if !hasCycle(comp, succs) {
			continue
		}

		exits := false
		for _, id := range comp {
			for _, succ := range succs[id] {
				if compOf[succ] != i {
					feeders[id] = true
					exits = true
					break
				}
			}
		}
		if exits {
			continue
		}

		for _, id := range comp {
			if id == order[0] {
				feeders[id] = true
				continue
			}
			for _, pred := range preds[id] {
				if compOf[pred] != i {
					feeders[id] = true
					break
				}
			}
		}
	}
	return feeders
}

func hasCycle(comp []string, succs map[string][]string) bool {
	if len(comp) > 1 {
		return true
	}
	for _, succ := range succs[comp[0]] {
		if succ == comp[0] {
			return true
		}
	}
	return false
}

// stronglyConnected partitions the blocks into strongly connected
// components with an iterative Tarjan walk.
func stronglyConnected(order []string, succs map[string][]string) [][]string {
	index := make(map[string]int, len(order))
	low := make(map[string]int, len(order))
	onStack := make(map[string]bool, len(order))
	var tarjanStack []string
	var comps [][]string
	next := 0

	type frame struct {
		node string
		iter int
	}
	for _, root := range order {
		if _, seen := index[root]; seen {
			continue
		}
		index[root] = next
		low[root] = next
		next++
		tarjanStack = append(tarjanStack, root)
		onStack[root] = true
		stack := []frame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.iter < len(succs[top.node]) {
				succ := succs[top.node][top.iter]
				top.iter++
				if _, seen := index[succ]; !seen {
					index[succ] = next
					low[succ] = next
					next++
					tarjanStack = append(tarjanStack, succ)
					onStack[succ] = true
					stack = append(stack, frame{node: succ})
				} else if onStack[succ] && index[succ] < low[top.node] {
					low[top.node] = index[succ]
				}
				continue
			}

			node := top.node
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				parent := &stack[len(stack)-1]
				if low[node] < low[parent.node] {
					low[parent.node] = low[node]
				}
			}
			if low[node] == index[node] {
				var comp []string
				for {
					member := tarjanStack[len(tarjanStack)-1]
					tarjanStack = tarjanStack[:len(tarjanStack)-1]
					onStack[member] = false
					comp = append(comp, member)
					if member == node {
						break
					}
				}
				comps = append(comps, comp)
			}
		}
	}
	return comps
}

// postDominatorMap runs the Cooper-Harvey-Kennedy iteration on the reversed
// CFG rooted at the virtual exit.
func postDominatorMap(functionName string, order, feeders []string, succs, preds map[string][]string, reachable map[string]bool) (map[string]string, error) {
	// In the reversed graph the virtual exit points at the feeders and every
	// other node points at its CFG predecessors.
	revSuccs := func(node string) []string {
		if node == VirtualExit {
			return feeders
		}
		return preds[node]
	}
	// Reversed-graph predecessors are CFG successors, plus the virtual exit
	// for feeder blocks.
	feederSet := make(map[string]bool, len(feeders))
	for _, id := range feeders {
		feederSet[id] = true
	}
	revPreds := func(node string) []string {
		out := succs[node]
		if feederSet[node] {
			out = append(append([]string{}, out...), VirtualExit)
		}
		return out
	}

	// Reverse postorder of the reversed graph.
	var postorder []string
	visited := map[string]bool{VirtualExit: true}
	type frame struct {
		node string
		next int
	}
	stack := []frame{{node: VirtualExit}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		rs := revSuccs(top.node)
		if top.next < len(rs) {
			next := rs[top.next]
			top.next++
			if !visited[next] && reachable[next] {
				visited[next] = true
				stack = append(stack, frame{node: next})
			}
			continue
		}
		postorder = append(postorder, top.node)
		stack = stack[:len(stack)-1]
	}

	rpo := make([]string, 0, len(postorder))
	rpoNum := make(map[string]int, len(postorder))
	for i := len(postorder) - 1; i >= 0; i-- {
		rpoNum[postorder[i]] = len(rpo)
		rpo = append(rpo, postorder[i])
	}

	for _, id := range order {
		if !visited[id] {
			return nil, fmt.Errorf("function %s: block %s cannot reach the exit", functionName, id)
		}
	}

	idom := make(map[string]string, len(rpo))
	idom[VirtualExit] = VirtualExit

	intersect := func(a, b string) string {
		for a != b {
			for rpoNum[a] > rpoNum[b] {
				a = idom[a]
			}
			for rpoNum[b] > rpoNum[a] {
				b = idom[b]
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for _, node := range rpo[1:] {
			var newIdom string
			for _, pred := range revPreds(node) {
				if pred != VirtualExit && !reachable[pred] {
					continue
				}
				if _, ok := idom[pred]; !ok {
					continue
				}
				if newIdom == "" {
					newIdom = pred
				} else {
					newIdom = intersect(pred, newIdom)
				}
			}
			if newIdom == "" {
				continue
			}
			if idom[node] != newIdom {
				idom[node] = newIdom
				changed = true
			}
		}
	}

	for _, id := range order {
		if _, ok := idom[id]; !ok {
			return nil, fmt.Errorf("function %s: block %s has no immediate post-dominator", functionName, id)
		}
	}
	idom[VirtualExit] = ""

	return idom, nil
}

// FunctionName returns the name of the function the tree was built for.
func (t *Tree) FunctionName() string {
	return t.functionName
}

// Has reports whether the block participates in the tree. The virtual exit
// is always present.
func (t *Tree) Has(block string) bool {
	if block == VirtualExit {
		return true
	}
	_, ok := t.idom[block]
	return ok
}

// ImmediatePostDominator returns the parent of the block in the tree. The
// second result is false for the virtual exit and for unknown blocks.
func (t *Tree) ImmediatePostDominator(block string) (string, bool) {
	if block == VirtualExit {
		return "", false
	}
	parent, ok := t.idom[block]
	return parent, ok
}

// PostDominates reports whether x post-dominates y. Every block
// post-dominates itself. Unknown blocks post-dominate nothing.
func (t *Tree) PostDominates(x, y string) bool {
	if !t.Has(x) || !t.Has(y) {
		return false
	}
	if x == y {
		return true
	}
	node := y
	for guard := len(t.order) + 2; guard > 0; guard-- {
		parent, ok := t.ImmediatePostDominator(node)
		if !ok {
			return false
		}
		if parent == x {
			return true
		}
		node = parent
	}
	return false
}

// NearestCommonAncestor returns the closest block that is an ancestor of
// both x and y in the tree, x and y included.
func (t *Tree) NearestCommonAncestor(x, y string) (string, error) {
	if !t.Has(x) {
		return "", fmt.Errorf("block %s not in post-dominator tree", x)
	}
	if !t.Has(y) {
		return "", fmt.Errorf("block %s not in post-dominator tree", y)
	}

	a, b := x, y
	guard := len(t.order) + 2
	for t.depth[a] > t.depth[b] && guard > 0 {
		a = t.idom[a]
		guard--
	}
	for t.depth[b] > t.depth[a] && guard > 0 {
		b = t.idom[b]
		guard--
	}
	for a != b && guard > 0 {
		a = t.idom[a]
		b = t.idom[b]
		guard--
	}
	if a != b {
		return "", fmt.Errorf("post-dominator tree has no common ancestor for %s and %s", x, y)
	}
	return a, nil
}

// Depth returns the distance of the block from the virtual exit, or -1 for
// unknown blocks.
func (t *Tree) Depth(block string) int {
	if !t.Has(block) {
		return -1
	}
	return t.depth[block]
}

// Children returns the blocks whose immediate post-dominator is the given
// block, in CFG traversal order.
func (t *Tree) Children(block string) []string {
	return t.children[block]
}

// Blocks returns the CFG blocks covered by the tree, entry first, in the
// deterministic traversal order of the CFG. The virtual exit is not
// included.
func (t *Tree) Blocks() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Export produces the serializable form of the tree.
func (t *Tree) Export() *TreeInfo {
	doms := make(map[string]string, len(t.idom))
	for block, parent := range t.idom {
		if block == VirtualExit {
			continue
		}
		doms[block] = parent
	}
	return &TreeInfo{
		FunctionName:            t.functionName,
		VirtualExit:             VirtualExit,
		Blocks:                  t.Blocks(),
		ImmediatePostDominators: doms,
	}
}
