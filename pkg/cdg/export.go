package cdg

import "fmt"

// NodeInfo is the serializable form of one graph node.
type NodeInfo struct {
	ID     int    `json:"id" msgpack:"id"`
	Block  string `json:"block,omitempty" msgpack:"block,omitempty"`
	Region bool   `json:"region" msgpack:"region"`
}

// EdgeInfo is the serializable form of one parent-to-child link.
type EdgeInfo struct {
	From int      `json:"from" msgpack:"from"`
	To   int      `json:"to" msgpack:"to"`
	Kind EdgeKind `json:"kind" msgpack:"kind"`
}

// CDGInfo is a flat snapshot of a graph, safe to serialize and rebuild.
// Nodes appear in creation order, so Nodes[i].ID == i and Root indexes into
// Nodes; edges are grouped by source node, true before false before other.
type CDGInfo struct {
	FunctionName string     `json:"function_name" msgpack:"function_name"`
	Root         int        `json:"root" msgpack:"root"`
	Nodes        []NodeInfo `json:"nodes" msgpack:"nodes"`
	Edges        []EdgeInfo `json:"edges" msgpack:"edges"`
}

// Export flattens the graph into a CDGInfo snapshot.
func (g *Graph) Export() *CDGInfo {
	info := &CDGInfo{
		FunctionName: g.functionName,
		Root:         g.root.id,
		Nodes:        make([]NodeInfo, 0, len(g.nodes)),
	}
	for _, node := range g.nodes {
		info.Nodes = append(info.Nodes, NodeInfo{
			ID:     node.id,
			Block:  node.block,
			Region: node.region,
		})
	}
	for _, node := range g.nodes {
		node.EachChild(func(child *Node, kind EdgeKind) bool {
			info.Edges = append(info.Edges, EdgeInfo{
				From: node.id,
				To:   child.id,
				Kind: kind,
			})
			return true
		})
	}
	return info
}

// FromInfo rebuilds a graph from a snapshot. The snapshot is validated the
// same way Build validates its inputs: any inconsistency fails the rebuild.
func FromInfo(info *CDGInfo) (*Graph, error) {
	if info == nil {
		return nil, fmt.Errorf("cdg: nil snapshot")
	}
	name := info.FunctionName

	g := &Graph{
		functionName: name,
		byBlock:      make(map[string]*Node, len(info.Nodes)),
	}
	for i, ni := range info.Nodes {
		if ni.ID != i {
			return nil, fmt.Errorf("function %s: snapshot node %d has ID %d", name, i, ni.ID)
		}
		if ni.Region {
			g.newRegion()
			continue
		}
		if _, ok := g.byBlock[ni.Block]; ok {
			return nil, fmt.Errorf("function %s: snapshot repeats block %s", name, ni.Block)
		}
		g.newNode(ni.Block)
	}

	if info.Root < 0 || info.Root >= len(g.nodes) {
		return nil, fmt.Errorf("function %s: snapshot root %d out of range", name, info.Root)
	}
	g.root = g.nodes[info.Root]
	if !g.root.region {
		return nil, fmt.Errorf("function %s: snapshot root %d is not a region", name, info.Root)
	}

	for _, edge := range info.Edges {
		if edge.From < 0 || edge.From >= len(g.nodes) || edge.To < 0 || edge.To >= len(g.nodes) {
			return nil, fmt.Errorf("function %s: snapshot edge %d -> %d out of range", name, edge.From, edge.To)
		}
		switch edge.Kind {
		case EdgeKindTrue, EdgeKindFalse, EdgeKindOther:
		default:
			return nil, fmt.Errorf("function %s: snapshot edge %d -> %d has kind %q", name, edge.From, edge.To, edge.Kind)
		}
		g.nodes[edge.From].addChild(g.nodes[edge.To], edge.Kind)
	}

	return g, nil
}
