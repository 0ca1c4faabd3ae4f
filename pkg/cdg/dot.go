package cdg

import (
	"fmt"
	"io"
	"strings"
)

// DOT renders the graph in Graphviz format. Region nodes are labeled
// REGION, block nodes carry their block ID, and edges are labeled T or F
// for the two conditional kinds.
func (g *Graph) DOT() string {
	var sb strings.Builder
	sb.WriteString("digraph \"Control dependence graph\" {\n")

	for _, node := range g.nodes {
		fmt.Fprintf(&sb, "  n%d [label=%q];\n", node.id, nodeLabel(node))
	}
	sb.WriteString("\n")

	for _, node := range g.nodes {
		node.EachChild(func(child *Node, kind EdgeKind) bool {
			switch kind {
			case EdgeKindTrue:
				fmt.Fprintf(&sb, "  n%d -> n%d [label=\"T\"];\n", node.id, child.id)
			case EdgeKindFalse:
				fmt.Fprintf(&sb, "  n%d -> n%d [label=\"F\"];\n", node.id, child.id)
			default:
				fmt.Fprintf(&sb, "  n%d -> n%d;\n", node.id, child.id)
			}
			return true
		})
	}

	sb.WriteString("}\n")
	return sb.String()
}

// WriteDOT writes the Graphviz rendering to w.
func (g *Graph) WriteDOT(w io.Writer) error {
	_, err := io.WriteString(w, g.DOT())
	return err
}

func nodeLabel(node *Node) string {
	if node.IsRegion() {
		return "REGION"
	}
	if node.Block() == "" {
		return "ENTRY"
	}
	return node.Block()
}
