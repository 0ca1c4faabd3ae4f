package cdg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/go-control-deps/pkg/cfg"
	"github.com/l3aro/go-control-deps/pkg/postdom"
)

// Options control graph construction.
type Options struct {
	// SkipRegions leaves the graph uncompacted: no region nodes are
	// inserted and nodes sharing identical dependences stay separate.
	SkipRegions bool
}

// Builder derives the control dependence graph of one function from its CFG
// and post-dominator tree.
type Builder struct {
	cfgInfo *cfg.CFGInfo
	tree    *postdom.Tree
	opts    Options
}

// NewBuilder creates a builder over a CFG and its post-dominator tree. Both
// must describe the same function.
func NewBuilder(cfgInfo *cfg.CFGInfo, tree *postdom.Tree, opts Options) *Builder {
	return &Builder{cfgInfo: cfgInfo, tree: tree, opts: opts}
}

// kindFor classifies a CFG edge by the branch outcome it represents. The
// two arms of a two-way conditional map to true and false; every other edge
// (unconditional, back edge, break, continue, switch arm, exception) is
// other.
func kindFor(edge cfg.CFGEdge) EdgeKind {
	switch edge.EdgeType {
	case cfg.EdgeTypeTrue:
		return EdgeKindTrue
	case cfg.EdgeTypeFalse:
		return EdgeKindFalse
	default:
		return EdgeKindOther
	}
}

// Build runs the dependence computation. For every CFG edge (A -> B) where
// B does not post-dominate A, the blocks from B up the post-dominator tree
// to, but not including, the nearest common ancestor of A and B become
// control-dependent on A under the edge's kind. A dependence aimed at a
// node that already reaches A is dropped: that link would close a cycle,
// and the graph stays a DAG. Nodes left without parents attach to the
// root, and unless disabled, nodes with identical labeled parent sets are
// folded under shared regions.
//
// Build fails on any inconsistency between the CFG and the tree; it never
// returns a partial graph.
func (b *Builder) Build() (*Graph, error) {
	if b.cfgInfo == nil || b.tree == nil {
		return nil, fmt.Errorf("cdg: builder needs both a CFG and a post-dominator tree")
	}
	name := b.cfgInfo.FunctionName
	if treeName := b.tree.FunctionName(); treeName != name {
		return nil, fmt.Errorf("cdg: CFG is for %s but post-dominator tree is for %s", name, treeName)
	}

	blocks := b.tree.Blocks()
	if len(blocks) == 0 {
		return nil, fmt.Errorf("function %s: post-dominator tree covers no blocks", name)
	}

	g := &Graph{
		functionName: name,
		byBlock:      make(map[string]*Node, len(blocks)),
	}
	g.root = g.newRegion()
	for _, id := range blocks {
		g.newNode(id)
	}

	for _, edge := range b.cfgInfo.Edges {
		source, ok := g.byBlock[edge.SourceID]
		if !ok {
			// Edge out of an unreachable block.
			continue
		}
		if _, ok := g.byBlock[edge.TargetID]; !ok {
			return nil, fmt.Errorf("function %s: edge target %s missing from post-dominator tree", name, edge.TargetID)
		}
		if b.tree.PostDominates(edge.TargetID, edge.SourceID) {
			continue
		}

		stop, err := b.tree.NearestCommonAncestor(edge.SourceID, edge.TargetID)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", name, err)
		}
		kind := kindFor(edge)

		walk := edge.TargetID
		for guard := len(blocks) + 2; walk != stop; guard-- {
			if guard <= 0 {
				return nil, fmt.Errorf("function %s: post-dominator walk from %s never reached %s", name, edge.TargetID, stop)
			}
			node, ok := g.byBlock[walk]
			if !ok {
				return nil, fmt.Errorf("function %s: post-dominator walk left the CFG at %s", name, walk)
			}
			if !reachesNode(node, source) {
				source.addChild(node, kind)
			}
			parent, ok := b.tree.ImmediatePostDominator(walk)
			if !ok {
				return nil, fmt.Errorf("function %s: post-dominator walk from %s never reached %s", name, edge.TargetID, stop)
			}
			walk = parent
		}
	}

	// The graph is a DAG, so every node has a parentless ancestor and
	// attaching those to the root reaches everything.
	for _, node := range g.nodes[1:] {
		if node.NumParents() == 0 {
			g.root.addChild(node, EdgeKindOther)
		}
	}

	if !b.opts.SkipRegions {
		g.insertRegions()
	}

	return g, nil
}

// reachesNode reports whether to can be reached from from over child links.
// A node reaches itself.
func reachesNode(from, to *Node) bool {
	if from == to {
		return true
	}
	seen := map[*Node]bool{from: true}
	stack := []*Node{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		hit := false
		n.EachChild(func(child *Node, _ EdgeKind) bool {
			if child == to {
				hit = true
				return false
			}
			if !seen[child] {
				seen[child] = true
				stack = append(stack, child)
			}
			return true
		})
		if hit {
			return true
		}
	}
	return false
}

// parentLink is one labeled parent edge of a node.
type parentLink struct {
	parent *Node
	kind   EdgeKind
}

func kindOrder(kind EdgeKind) int {
	switch kind {
	case EdgeKindTrue:
		return 0
	case EdgeKindFalse:
		return 1
	default:
		return 2
	}
}

// labeledParentLinks returns the node's parent links with their kinds in
// canonical order: by parent ID, then true before false before other.
func labeledParentLinks(n *Node) []parentLink {
	var links []parentLink
	for _, parent := range n.parents {
		for _, kind := range []EdgeKind{EdgeKindTrue, EdgeKindFalse, EdgeKindOther} {
			if parent.hasChild(n, kind) {
				links = append(links, parentLink{parent: parent, kind: kind})
			}
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].parent.id != links[j].parent.id {
			return links[i].parent.id < links[j].parent.id
		}
		return kindOrder(links[i].kind) < kindOrder(links[j].kind)
	})
	return links
}

func signature(links []parentLink) string {
	parts := make([]string, len(links))
	for i, link := range links {
		parts[i] = fmt.Sprintf("%d:%s", link.parent.id, link.kind)
	}
	return strings.Join(parts, "|")
}

// insertRegions partitions the non-root nodes by labeled parent set and
// folds every partition with more than one member under a fresh region
// node. The parents' links move to the region with their kinds preserved;
// the members become other-children of the region, which is then their only
// parent. Regions themselves are not re-partitioned.
func (g *Graph) insertRegions() {
	blockNodes := g.nodes[1:]

	groups := make(map[string][]*Node)
	var order []string
	for _, node := range blockNodes {
		sig := signature(labeledParentLinks(node))
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], node)
	}

	for _, sig := range order {
		members := groups[sig]
		if len(members) < 2 {
			continue
		}
		links := labeledParentLinks(members[0])
		if len(links) == 0 {
			continue
		}

		region := g.newRegion()
		for _, link := range links {
			link.parent.replaceChildren(members, region, link.kind)
		}
		for _, member := range members {
			member.parents = []*Node{region}
			region.otherChildren = append(region.otherChildren, member)
		}
	}
}

// replaceChildren removes every node in olds from the kind list, putting
// replacement in the position of the first one removed.
func (n *Node) replaceChildren(olds []*Node, replacement *Node, kind EdgeKind) {
	oldSet := make(map[*Node]bool, len(olds))
	for _, old := range olds {
		oldSet[old] = true
	}

	list := n.childList(kind)
	var out []*Node
	inserted := false
	for _, child := range *list {
		if oldSet[child] {
			if !inserted {
				out = append(out, replacement)
				inserted = true
			}
			continue
		}
		out = append(out, child)
	}
	*list = out

	if inserted && !replacement.hasParent(n) {
		replacement.parents = append(replacement.parents, n)
	}
}
