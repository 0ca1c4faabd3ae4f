package cfg

import (
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// goCFGExtractor handles CFG extraction for Go source code.
type goCFGExtractor struct {
	*cfgBuilder
	content []byte
	tree    *sitter.Tree
}

// newGoCFGExtractor creates a new Go CFG extractor.
func newGoCFGExtractor(content []byte) *goCFGExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree := parser.Parse(nil, content)

	return &goCFGExtractor{
		cfgBuilder: newCFGBuilder(),
		content:    content,
		tree:       tree,
	}
}

// extractGoCFG extracts the Control Flow Graph from a Go file for the
// specified function or method.
func extractGoCFG(filePath string, functionName string) (*CFGInfo, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}

	e := newGoCFGExtractor(content)
	defer e.tree.Close()

	funcNode := e.findFunction(e.tree.RootNode(), functionName)
	if funcNode == nil {
		return nil, fmt.Errorf("function %q not found in %s", functionName, filePath)
	}

	body := funcNode.ChildByFieldName("body")
	if body == nil {
		return nil, fmt.Errorf("function body not found for %s", functionName)
	}

	entry := e.newBlock(BlockTypeEntry, int(funcNode.StartPoint().Row)+1)
	entry.Statements = []string{"entry"}
	e.addBlock(entry)

	current := entry
	e.processBlock(body, &current)

	exit := e.newBlock(BlockTypeExit, int(funcNode.EndPoint().Row)+1)
	exit.Statements = []string{"exit"}
	e.addBlock(exit)
	if current != nil {
		e.addEdge(current.ID, exit.ID, EdgeTypeUnconditional)
	}

	complexity := e.calculateCyclomaticComplexity(body)

	return e.finalize(functionName, entry, exit, complexity)
}

// findFunction searches for a function or method declaration by name.
func (e *goCFGExtractor) findFunction(node *sitter.Node, funcName string) *sitter.Node {
	if node == nil {
		return nil
	}

	switch node.Type() {
	case "function_declaration", "method_declaration":
		if name := node.ChildByFieldName("name"); name != nil && e.nodeText(name) == funcName {
			return node
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if result := e.findFunction(child, funcName); result != nil {
			return result
		}
	}

	return nil
}

// processBlock walks the statements of a block node. currentBlock is set to
// nil when control cannot fall through (return, break, continue); statements
// after that point are unreachable and produce no blocks.
func (e *goCFGExtractor) processBlock(blockNode *sitter.Node, currentBlock **CFGBlock) {
	if blockNode == nil {
		return
	}

	for i := 0; i < int(blockNode.ChildCount()); i++ {
		child := blockNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "{", "}", ";", "comment":
			continue
		}
		e.processStatement(child, currentBlock)
	}
}

// processStatement dispatches a single statement node.
func (e *goCFGExtractor) processStatement(node *sitter.Node, currentBlock **CFGBlock) {
	if node == nil || *currentBlock == nil {
		return
	}

	switch node.Type() {
	case "if_statement":
		e.processIfStatement(node, currentBlock)

	case "for_statement":
		e.processForStatement(node, currentBlock)

	case "expression_switch_statement", "type_switch_statement", "select_statement":
		e.processSwitchStatement(node, currentBlock)

	case "return_statement":
		e.processReturnStatement(node, currentBlock)

	case "break_statement":
		e.processBreakStatement(node, currentBlock)

	case "continue_statement":
		e.processContinueStatement(node, currentBlock)

	case "labeled_statement":
		// The label itself has no flow effect.
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			child := node.Child(i)
			if child == nil {
				continue
			}
			if child.Type() != ":" && child.Type() != "label_name" {
				e.processStatement(child, currentBlock)
				break
			}
		}

	case "block":
		e.processBlock(node, currentBlock)

	default:
		appendStatement(*currentBlock, e.nodeText(node), int(node.EndPoint().Row)+1)
	}
}

// processIfStatement handles if/else-if/else chains. All arms and the skip
// path converge on a join block, which becomes the current block.
func (e *goCFGExtractor) processIfStatement(node *sitter.Node, currentBlock **CFGBlock) {
	branch := e.newBlock(BlockTypeBranch, int(node.StartPoint().Row)+1)
	if init := node.ChildByFieldName("initializer"); init != nil {
		appendStatement(branch, e.nodeText(init), int(init.EndPoint().Row)+1)
	}
	branch.Statements = append(branch.Statements, "if "+e.nodeText(node.ChildByFieldName("condition")))
	e.addBlock(branch)
	e.addEdge((*currentBlock).ID, branch.ID, EdgeTypeUnconditional)

	join := e.newBlock(BlockTypePlain, int(node.EndPoint().Row)+1)
	e.addBlock(join)
	e.wireIfArms(node, branch, join)

	if e.pruneOrphanJoin(join) {
		*currentBlock = join
	} else {
		*currentBlock = nil
	}
}

// wireIfArms connects the then arm, the else arm (possibly a chained if),
// and the skip path of an if statement to the join block.
func (e *goCFGExtractor) wireIfArms(ifNode *sitter.Node, branch, join *CFGBlock) {
	cond := e.nodeText(ifNode.ChildByFieldName("condition"))

	consequence := ifNode.ChildByFieldName("consequence")
	thenBlock := e.newBlock(BlockTypePlain, startLine(consequence, ifNode))
	e.addBlock(thenBlock)
	e.addConditionalEdge(branch.ID, thenBlock.ID, EdgeTypeTrue, cond)

	thenCurrent := thenBlock
	e.processBlock(consequence, &thenCurrent)
	if thenCurrent != nil {
		e.addEdge(thenCurrent.ID, join.ID, EdgeTypeUnconditional)
	}

	alt := ifNode.ChildByFieldName("alternative")
	if alt == nil {
		e.addConditionalEdge(branch.ID, join.ID, EdgeTypeFalse, cond)
		return
	}

	if alt.Type() == "if_statement" {
		nested := e.newBlock(BlockTypeBranch, int(alt.StartPoint().Row)+1)
		nested.Statements = []string{"if " + e.nodeText(alt.ChildByFieldName("condition"))}
		e.addBlock(nested)
		e.addConditionalEdge(branch.ID, nested.ID, EdgeTypeFalse, cond)
		e.wireIfArms(alt, nested, join)
		return
	}

	elseBlock := e.newBlock(BlockTypePlain, int(alt.StartPoint().Row)+1)
	e.addBlock(elseBlock)
	e.addConditionalEdge(branch.ID, elseBlock.ID, EdgeTypeFalse, cond)

	elseCurrent := elseBlock
	e.processBlock(alt, &elseCurrent)
	if elseCurrent != nil {
		e.addEdge(elseCurrent.ID, join.ID, EdgeTypeUnconditional)
	}
}

// processForStatement handles all for loop forms: classic three-clause,
// condition-only, range, and bare infinite loops. Loops with a condition or
// range clause get a two-way header; infinite loops enter the body
// unconditionally and leave only through break.
func (e *goCFGExtractor) processForStatement(node *sitter.Node, currentBlock **CFGBlock) {
	body := node.ChildByFieldName("body")

	var condText string
	var update *sitter.Node
	twoWay := false

	if rangeClause := e.findChildByType(node, "range_clause"); rangeClause != nil {
		condText = e.nodeText(rangeClause)
		twoWay = true
	} else if forClause := e.findChildByType(node, "for_clause"); forClause != nil {
		if init := forClause.ChildByFieldName("initializer"); init != nil {
			appendStatement(*currentBlock, e.nodeText(init), int(init.EndPoint().Row)+1)
		}
		if cond := forClause.ChildByFieldName("condition"); cond != nil {
			condText = e.nodeText(cond)
			twoWay = true
		}
		update = forClause.ChildByFieldName("update")
	} else {
		// `for cond {}` keeps the bare condition expression as a direct child.
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "for", "block", "comment":
				continue
			}
			condText = e.nodeText(child)
			twoWay = true
			break
		}
	}

	header := e.newBlock(BlockTypeBranch, int(node.StartPoint().Row)+1)
	if condText != "" {
		header.Statements = []string{"for " + condText}
	} else {
		header.Statements = []string{"for"}
	}
	e.addBlock(header)
	e.addEdge((*currentBlock).ID, header.ID, EdgeTypeUnconditional)

	loopBody := e.newBlock(BlockTypeLoopBody, startLine(body, node))
	e.addBlock(loopBody)

	after := e.newBlock(BlockTypePlain, int(node.EndPoint().Row)+1)
	e.addBlock(after)

	if twoWay {
		e.addConditionalEdge(header.ID, loopBody.ID, EdgeTypeTrue, condText)
		e.addConditionalEdge(header.ID, after.ID, EdgeTypeFalse, condText)
	} else {
		e.addEdge(header.ID, loopBody.ID, EdgeTypeUnconditional)
	}

	e.pushFrame(header, after, true)
	bodyCurrent := loopBody
	e.processBlock(body, &bodyCurrent)
	e.popFrame()

	if bodyCurrent != nil {
		if update != nil {
			appendStatement(bodyCurrent, e.nodeText(update), int(update.EndPoint().Row)+1)
		}
		e.addEdge(bodyCurrent.ID, header.ID, EdgeTypeBackEdge)
	}

	if e.pruneOrphanJoin(after) {
		*currentBlock = after
	} else {
		*currentBlock = nil
	}
}

// processSwitchStatement handles expression switch, type switch, and select.
// Every case arm leaves the dispatch block on an unconditional edge; a
// missing default adds a skip edge to the join block.
func (e *goCFGExtractor) processSwitchStatement(node *sitter.Node, currentBlock **CFGBlock) {
	label := "switch"
	if node.Type() == "select_statement" {
		label = "select"
	}

	switchBlock := e.newBlock(BlockTypeBranch, int(node.StartPoint().Row)+1)
	if init := node.ChildByFieldName("initializer"); init != nil {
		appendStatement(switchBlock, e.nodeText(init), int(init.EndPoint().Row)+1)
	}
	if value := node.ChildByFieldName("value"); value != nil {
		label += " " + e.nodeText(value)
	}
	switchBlock.Statements = append(switchBlock.Statements, label)
	e.addBlock(switchBlock)
	e.addEdge((*currentBlock).ID, switchBlock.ID, EdgeTypeUnconditional)

	after := e.newBlock(BlockTypePlain, int(node.EndPoint().Row)+1)
	e.addBlock(after)

	e.pushFrame(nil, after, false)
	hasDefault := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "expression_case", "type_case", "communication_case", "default_case":
		default:
			continue
		}
		if child.Type() == "default_case" {
			hasDefault = true
		}

		caseBlock := e.newBlock(BlockTypePlain, int(child.StartPoint().Row)+1)
		caseBlock.Statements = []string{e.caseLabel(child)}
		e.addBlock(caseBlock)
		e.addEdge(switchBlock.ID, caseBlock.ID, EdgeTypeUnconditional)

		caseCurrent := caseBlock
		e.processCaseBody(child, &caseCurrent)
		if caseCurrent != nil {
			e.addEdge(caseCurrent.ID, after.ID, EdgeTypeUnconditional)
		}
	}
	e.popFrame()

	if !hasDefault {
		e.addEdge(switchBlock.ID, after.ID, EdgeTypeUnconditional)
	}

	if e.pruneOrphanJoin(after) {
		*currentBlock = after
	} else {
		*currentBlock = nil
	}
}

// caseLabel renders a short label for a case arm.
func (e *goCFGExtractor) caseLabel(caseNode *sitter.Node) string {
	if caseNode.Type() == "default_case" {
		return "default"
	}
	for _, field := range []string{"value", "type", "communication"} {
		if child := caseNode.ChildByFieldName(field); child != nil {
			return "case " + e.nodeText(child)
		}
	}
	return "case"
}

// processCaseBody walks the statements of a case arm, skipping everything up
// to and including the colon.
func (e *goCFGExtractor) processCaseBody(caseNode *sitter.Node, currentBlock **CFGBlock) {
	var colonEnd uint32
	for i := 0; i < int(caseNode.ChildCount()); i++ {
		child := caseNode.Child(i)
		if child != nil && child.Type() == ":" {
			colonEnd = child.EndByte()
			break
		}
	}

	for i := 0; i < int(caseNode.ChildCount()); i++ {
		child := caseNode.Child(i)
		if child == nil || child.StartByte() < colonEnd || child.Type() == "comment" {
			continue
		}
		e.processStatement(child, currentBlock)
	}
}

// processReturnStatement handles return statements. The return block is
// wired to the function exit in finalize.
func (e *goCFGExtractor) processReturnStatement(node *sitter.Node, currentBlock **CFGBlock) {
	returnBlock := e.newBlock(BlockTypeReturn, int(node.StartPoint().Row)+1)
	returnBlock.Statements = []string{e.nodeText(node)}
	e.addBlock(returnBlock)
	e.addEdge((*currentBlock).ID, returnBlock.ID, EdgeTypeUnconditional)
	e.markReturn(returnBlock)
	*currentBlock = nil
}

// processBreakStatement handles break statements, targeting the innermost
// loop or switch exit.
func (e *goCFGExtractor) processBreakStatement(node *sitter.Node, currentBlock **CFGBlock) {
	appendStatement(*currentBlock, e.nodeText(node), int(node.EndPoint().Row)+1)
	if target, ok := e.breakTarget(); ok {
		e.addEdge((*currentBlock).ID, target.ID, EdgeTypeBreak)
		*currentBlock = nil
	}
}

// processContinueStatement handles continue statements, targeting the
// innermost loop header.
func (e *goCFGExtractor) processContinueStatement(node *sitter.Node, currentBlock **CFGBlock) {
	appendStatement(*currentBlock, e.nodeText(node), int(node.EndPoint().Row)+1)
	if target, ok := e.continueTarget(); ok {
		e.addEdge((*currentBlock).ID, target.ID, EdgeTypeContinue)
		*currentBlock = nil
	}
}

// calculateCyclomaticComplexity calculates the cyclomatic complexity.
// Formula: decision_points + 1
func (e *goCFGExtractor) calculateCyclomaticComplexity(node *sitter.Node) int {
	return e.countDecisionPoints(node) + 1
}

// countDecisionPoints counts branching constructs and short-circuit
// operators.
func (e *goCFGExtractor) countDecisionPoints(node *sitter.Node) int {
	if node == nil {
		return 0
	}

	count := 0
	switch node.Type() {
	case "if_statement", "for_statement":
		count++
	case "expression_case", "type_case", "communication_case":
		count++
	case "binary_expression":
		if op := node.ChildByFieldName("operator"); op != nil {
			if text := e.nodeText(op); text == "&&" || text == "||" {
				count++
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		count += e.countDecisionPoints(node.Child(i))
	}

	return count
}

// findChildByType finds a child node of a specific type.
func (e *goCFGExtractor) findChildByType(node *sitter.Node, childType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == childType {
			return child
		}
	}

	return nil
}

// nodeText extracts the text content of a node from the source.
func (e *goCFGExtractor) nodeText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= uint32(len(e.content)) || end > uint32(len(e.content)) {
		return ""
	}
	return string(e.content[start:end])
}

// startLine returns the 1-based start line of node, falling back to the
// enclosing node when nil.
func startLine(node, fallback *sitter.Node) int {
	if node != nil {
		return int(node.StartPoint().Row) + 1
	}
	return int(fallback.StartPoint().Row) + 1
}
