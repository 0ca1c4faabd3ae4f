package cfg

import "fmt"

// loopFrame tracks the enclosing loop or switch construct so break and
// continue statements can be wired to real blocks. Switch frames have a nil
// header and only absorb break.
type loopFrame struct {
	header *CFGBlock
	exit   *CFGBlock
	loop   bool
}

// cfgBuilder holds the block and edge state shared by the per-language
// extractors. Extractors embed it and drive it from their tree walks.
type cfgBuilder struct {
	blocks       map[string]*CFGBlock
	edges        []CFGEdge
	blockID      int
	returnBlocks []*CFGBlock
	frames       []loopFrame
}

func newCFGBuilder() *cfgBuilder {
	return &cfgBuilder{
		blocks: make(map[string]*CFGBlock),
		edges:  make([]CFGEdge, 0),
	}
}

// newBlock creates a new CFG block with a unique ID.
func (b *cfgBuilder) newBlock(blockType BlockType, line int) *CFGBlock {
	b.blockID++
	return &CFGBlock{
		ID:           fmt.Sprintf("block_%d", b.blockID),
		Type:         blockType,
		StartLine:    line,
		EndLine:      line,
		Statements:   make([]string, 0),
		Predecessors: make([]string, 0),
	}
}

// addBlock adds a block to the CFG.
func (b *cfgBuilder) addBlock(block *CFGBlock) {
	b.blocks[block.ID] = block
}

// addEdge adds an edge between two blocks.
func (b *cfgBuilder) addEdge(sourceID, targetID string, edgeType EdgeType) {
	b.addConditionalEdge(sourceID, targetID, edgeType, "")
}

// addConditionalEdge adds an edge carrying the condition expression that
// selects it.
func (b *cfgBuilder) addConditionalEdge(sourceID, targetID string, edgeType EdgeType, condition string) {
	b.edges = append(b.edges, CFGEdge{
		SourceID:  sourceID,
		TargetID:  targetID,
		EdgeType:  edgeType,
		Condition: condition,
	})
}

// markReturn records a block that leaves the function; finalize wires all of
// them to the exit block.
func (b *cfgBuilder) markReturn(block *CFGBlock) {
	b.returnBlocks = append(b.returnBlocks, block)
}

func (b *cfgBuilder) pushFrame(header, exit *CFGBlock, loop bool) {
	b.frames = append(b.frames, loopFrame{header: header, exit: exit, loop: loop})
}

func (b *cfgBuilder) popFrame() {
	if len(b.frames) > 0 {
		b.frames = b.frames[:len(b.frames)-1]
	}
}

// breakTarget returns the exit block of the innermost enclosing loop or
// switch.
func (b *cfgBuilder) breakTarget() (*CFGBlock, bool) {
	if len(b.frames) == 0 {
		return nil, false
	}
	return b.frames[len(b.frames)-1].exit, true
}

// continueTarget returns the header block of the innermost enclosing loop,
// skipping switch frames.
func (b *cfgBuilder) continueTarget() (*CFGBlock, bool) {
	for i := len(b.frames) - 1; i >= 0; i-- {
		if b.frames[i].loop {
			return b.frames[i].header, true
		}
	}
	return nil, false
}

// pruneOrphanJoin keeps the join block only if some edge reaches it. A join
// that every arm jumps over (all arms return, break, or continue) would
// otherwise dangle and get wired straight to the exit.
func (b *cfgBuilder) pruneOrphanJoin(join *CFGBlock) bool {
	for _, edge := range b.edges {
		if edge.TargetID == join.ID {
			return true
		}
	}
	delete(b.blocks, join.ID)
	return false
}

// appendStatement records a statement on the block and extends its line
// range.
func appendStatement(block *CFGBlock, stmt string, endLine int) {
	if block == nil || stmt == "" {
		return
	}
	block.Statements = append(block.Statements, stmt)
	if endLine > block.EndLine {
		block.EndLine = endLine
	}
}

// finalize wires pending return blocks to the exit block, fills in block
// predecessors from the edge list, validates the graph, and produces the
// CFGInfo.
func (b *cfgBuilder) finalize(functionName string, entry, exit *CFGBlock, complexity int) (*CFGInfo, error) {
	if entry == nil || exit == nil {
		return nil, fmt.Errorf("function %s: incomplete graph, missing entry or exit", functionName)
	}

	for _, ret := range b.returnBlocks {
		b.addEdge(ret.ID, exit.ID, EdgeTypeUnconditional)
	}

	for _, edge := range b.edges {
		if edge.SourceID == "" || edge.TargetID == "" {
			return nil, fmt.Errorf("function %s: edge with empty endpoint", functionName)
		}
		if _, ok := b.blocks[edge.SourceID]; !ok {
			return nil, fmt.Errorf("function %s: edge source %s not in graph", functionName, edge.SourceID)
		}
		target, ok := b.blocks[edge.TargetID]
		if !ok {
			return nil, fmt.Errorf("function %s: edge target %s not in graph", functionName, edge.TargetID)
		}
		if !containsID(target.Predecessors, edge.SourceID) {
			target.Predecessors = append(target.Predecessors, edge.SourceID)
		}
	}

	result := make(map[string]CFGBlock, len(b.blocks))
	for id, block := range b.blocks {
		result[id] = *block
	}

	return &CFGInfo{
		FunctionName:         functionName,
		Blocks:               result,
		Edges:                b.edges,
		EntryBlockID:         entry.ID,
		ExitBlockIDs:         []string{exit.ID},
		CyclomaticComplexity: complexity,
	}, nil
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
