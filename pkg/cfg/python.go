package cfg

import (
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// pythonCFGExtractor handles CFG extraction for Python source code.
type pythonCFGExtractor struct {
	*cfgBuilder
	content []byte
	tree    *sitter.Tree
}

// newPythonCFGExtractor creates a new Python CFG extractor.
func newPythonCFGExtractor(content []byte) *pythonCFGExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree := parser.Parse(nil, content)

	return &pythonCFGExtractor{
		cfgBuilder: newCFGBuilder(),
		content:    content,
		tree:       tree,
	}
}

// extractPythonCFG extracts the Control Flow Graph from a Python file for
// the specified function or method.
func extractPythonCFG(filePath string, functionName string) (*CFGInfo, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}

	e := newPythonCFGExtractor(content)
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

// findFunction searches for a function definition node by name, descending
// into classes so methods are found as well.
func (e *pythonCFGExtractor) findFunction(node *sitter.Node, funcName string) *sitter.Node {
	if node == nil {
		return nil
	}

	if node.Type() == "function_definition" {
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
// nil when control cannot fall through (return, raise, break, continue);
// statements after that point are unreachable and produce no blocks.
func (e *pythonCFGExtractor) processBlock(blockNode *sitter.Node, currentBlock **CFGBlock) {
	if blockNode == nil {
		return
	}

	for i := 0; i < int(blockNode.ChildCount()); i++ {
		child := blockNode.Child(i)
		if child == nil {
			continue
		}
		e.processStatement(child, currentBlock)
	}
}

// processStatement dispatches a single statement node.
func (e *pythonCFGExtractor) processStatement(node *sitter.Node, currentBlock **CFGBlock) {
	if node == nil || *currentBlock == nil {
		return
	}

	switch node.Type() {
	case "if_statement":
		e.processIfStatement(node, currentBlock)

	case "for_statement", "async_for_statement":
		e.processForStatement(node, currentBlock)

	case "while_statement":
		e.processWhileStatement(node, currentBlock)

	case "match_statement":
		e.processMatchStatement(node, currentBlock)

	case "try_statement":
		e.processTryStatement(node, currentBlock)

	case "with_statement", "async_with_statement":
		e.processWithStatement(node, currentBlock)

	case "return_statement":
		e.processReturnStatement(node, currentBlock)

	case "raise_statement":
		e.processRaiseStatement(node, currentBlock)

	case "break_statement":
		e.processBreakStatement(node, currentBlock)

	case "continue_statement":
		e.processContinueStatement(node, currentBlock)

	case "function_definition", "decorated_definition", "class_definition":
		// Nested definitions do not affect the enclosing flow.

	case "comment":

	default:
		appendStatement(*currentBlock, e.nodeText(node), int(node.EndPoint().Row)+1)
	}
}

// processIfStatement handles if/elif/else chains. All arms and the skip path
// converge on a join block, which becomes the current block.
func (e *pythonCFGExtractor) processIfStatement(node *sitter.Node, currentBlock **CFGBlock) {
	cond := e.nodeText(node.ChildByFieldName("condition"))

	branch := e.newBlock(BlockTypeBranch, int(node.StartPoint().Row)+1)
	branch.Statements = []string{"if " + cond}
	e.addBlock(branch)
	e.addEdge((*currentBlock).ID, branch.ID, EdgeTypeUnconditional)

	join := e.newBlock(BlockTypePlain, int(node.EndPoint().Row)+1)
	e.addBlock(join)

	thenBlock := e.newBlock(BlockTypePlain, startLine(node.ChildByFieldName("consequence"), node))
	e.addBlock(thenBlock)
	e.addConditionalEdge(branch.ID, thenBlock.ID, EdgeTypeTrue, cond)
	thenCurrent := thenBlock
	e.processBlock(node.ChildByFieldName("consequence"), &thenCurrent)
	if thenCurrent != nil {
		e.addEdge(thenCurrent.ID, join.ID, EdgeTypeUnconditional)
	}

	// Walk the elif/else chain; each elif becomes a fresh branch block hung
	// off the previous branch's false arm.
	lastBranch := branch
	lastCond := cond
	sawElse := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "elif_clause":
			elifCond := e.nodeText(child.ChildByFieldName("condition"))
			elifBranch := e.newBlock(BlockTypeBranch, int(child.StartPoint().Row)+1)
			elifBranch.Statements = []string{"elif " + elifCond}
			e.addBlock(elifBranch)
			e.addConditionalEdge(lastBranch.ID, elifBranch.ID, EdgeTypeFalse, lastCond)

			elifBlock := e.newBlock(BlockTypePlain, startLine(child.ChildByFieldName("consequence"), child))
			e.addBlock(elifBlock)
			e.addConditionalEdge(elifBranch.ID, elifBlock.ID, EdgeTypeTrue, elifCond)
			elifCurrent := elifBlock
			e.processBlock(child.ChildByFieldName("consequence"), &elifCurrent)
			if elifCurrent != nil {
				e.addEdge(elifCurrent.ID, join.ID, EdgeTypeUnconditional)
			}

			lastBranch = elifBranch
			lastCond = elifCond

		case "else_clause":
			elseBlock := e.newBlock(BlockTypePlain, int(child.StartPoint().Row)+1)
			e.addBlock(elseBlock)
			e.addConditionalEdge(lastBranch.ID, elseBlock.ID, EdgeTypeFalse, lastCond)
			elseCurrent := elseBlock
			e.processBlock(child.ChildByFieldName("body"), &elseCurrent)
			if elseCurrent != nil {
				e.addEdge(elseCurrent.ID, join.ID, EdgeTypeUnconditional)
			}
			sawElse = true
		}
	}

	if !sawElse {
		e.addConditionalEdge(lastBranch.ID, join.ID, EdgeTypeFalse, lastCond)
	}

	if e.pruneOrphanJoin(join) {
		*currentBlock = join
	} else {
		*currentBlock = nil
	}
}

// processForStatement handles for loops. The header is a two-way branch:
// true enters the body, false leaves the loop when the iterator is
// exhausted. A loop else clause sits on the exhaustion path; break skips it.
func (e *pythonCFGExtractor) processForStatement(node *sitter.Node, currentBlock **CFGBlock) {
	left := e.nodeText(node.ChildByFieldName("left"))
	right := e.nodeText(node.ChildByFieldName("right"))
	cond := left + " in " + right

	header := e.newBlock(BlockTypeBranch, int(node.StartPoint().Row)+1)
	header.Statements = []string{"for " + cond}
	e.addBlock(header)
	e.addEdge((*currentBlock).ID, header.ID, EdgeTypeUnconditional)

	e.wireLoop(node, header, cond, currentBlock)
}

// processWhileStatement handles while loops.
func (e *pythonCFGExtractor) processWhileStatement(node *sitter.Node, currentBlock **CFGBlock) {
	cond := e.nodeText(node.ChildByFieldName("condition"))

	header := e.newBlock(BlockTypeBranch, int(node.StartPoint().Row)+1)
	header.Statements = []string{"while " + cond}
	e.addBlock(header)
	e.addEdge((*currentBlock).ID, header.ID, EdgeTypeUnconditional)

	e.wireLoop(node, header, cond, currentBlock)
}

// wireLoop builds the body, back edge, and exit path shared by for and
// while loops.
func (e *pythonCFGExtractor) wireLoop(node *sitter.Node, header *CFGBlock, cond string, currentBlock **CFGBlock) {
	body := node.ChildByFieldName("body")

	loopBody := e.newBlock(BlockTypeLoopBody, startLine(body, node))
	e.addBlock(loopBody)
	e.addConditionalEdge(header.ID, loopBody.ID, EdgeTypeTrue, cond)

	after := e.newBlock(BlockTypePlain, int(node.EndPoint().Row)+1)
	e.addBlock(after)

	e.pushFrame(header, after, true)
	bodyCurrent := loopBody
	e.processBlock(body, &bodyCurrent)
	e.popFrame()

	if bodyCurrent != nil {
		e.addEdge(bodyCurrent.ID, header.ID, EdgeTypeBackEdge)
	}

	// Normal exhaustion runs the loop else clause when present; break edges
	// go straight to after.
	if elseClause := node.ChildByFieldName("alternative"); elseClause != nil && elseClause.Type() == "else_clause" {
		elseBlock := e.newBlock(BlockTypePlain, int(elseClause.StartPoint().Row)+1)
		e.addBlock(elseBlock)
		e.addConditionalEdge(header.ID, elseBlock.ID, EdgeTypeFalse, cond)
		elseCurrent := elseBlock
		e.processBlock(elseClause.ChildByFieldName("body"), &elseCurrent)
		if elseCurrent != nil {
			e.addEdge(elseCurrent.ID, after.ID, EdgeTypeUnconditional)
		}
	} else {
		e.addConditionalEdge(header.ID, after.ID, EdgeTypeFalse, cond)
	}

	if e.pruneOrphanJoin(after) {
		*currentBlock = after
	} else {
		*currentBlock = nil
	}
}

// processMatchStatement handles match statements. Case arms leave the match
// block on unconditional edges, like a switch dispatch.
func (e *pythonCFGExtractor) processMatchStatement(node *sitter.Node, currentBlock **CFGBlock) {
	subject := e.nodeText(node.ChildByFieldName("subject"))

	matchBlock := e.newBlock(BlockTypeBranch, int(node.StartPoint().Row)+1)
	matchBlock.Statements = []string{"match " + subject}
	e.addBlock(matchBlock)
	e.addEdge((*currentBlock).ID, matchBlock.ID, EdgeTypeUnconditional)

	after := e.newBlock(BlockTypePlain, int(node.EndPoint().Row)+1)
	e.addBlock(after)

	e.forEachDescendantOfType(node, "case_clause", func(clause *sitter.Node) {
		caseBlock := e.newBlock(BlockTypePlain, int(clause.StartPoint().Row)+1)
		caseBlock.Statements = []string{e.caseLabel(clause)}
		e.addBlock(caseBlock)
		e.addEdge(matchBlock.ID, caseBlock.ID, EdgeTypeUnconditional)

		caseCurrent := caseBlock
		e.processBlock(clause.ChildByFieldName("consequence"), &caseCurrent)
		if caseCurrent != nil {
			e.addEdge(caseCurrent.ID, after.ID, EdgeTypeUnconditional)
		}
	})

	// No arm matched.
	e.addEdge(matchBlock.ID, after.ID, EdgeTypeUnconditional)

	*currentBlock = after
}

// caseLabel renders a short label for a match case arm.
func (e *pythonCFGExtractor) caseLabel(clause *sitter.Node) string {
	if pattern := e.findChildByType(clause, "case_pattern"); pattern != nil {
		return "case " + e.nodeText(pattern)
	}
	return "case"
}

// processTryStatement handles try/except/else/finally. Handlers fan out of
// the try body; else runs on the normal path; finally joins all paths.
func (e *pythonCFGExtractor) processTryStatement(node *sitter.Node, currentBlock **CFGBlock) {
	tryBody := e.newBlock(BlockTypePlain, int(node.StartPoint().Row)+1)
	tryBody.Statements = []string{"try"}
	e.addBlock(tryBody)
	e.addEdge((*currentBlock).ID, tryBody.ID, EdgeTypeUnconditional)

	tryCurrent := tryBody
	e.processBlock(node.ChildByFieldName("body"), &tryCurrent)

	join := e.newBlock(BlockTypePlain, int(node.EndPoint().Row)+1)
	e.addBlock(join)

	var tails []*CFGBlock
	var elseClause, finallyClause *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "except_clause", "except_group_clause":
			handler := e.newBlock(BlockTypeBranch, int(child.StartPoint().Row)+1)
			handler.Statements = []string{e.exceptLabel(child)}
			e.addBlock(handler)
			e.addEdge(tryBody.ID, handler.ID, EdgeTypeUnconditional)

			handlerCurrent := handler
			e.processBlock(e.findChildByType(child, "block"), &handlerCurrent)
			if handlerCurrent != nil {
				tails = append(tails, handlerCurrent)
			}
		case "else_clause":
			elseClause = child
		case "finally_clause":
			finallyClause = child
		}
	}

	normalTail := tryCurrent
	if elseClause != nil && normalTail != nil {
		elseBlock := e.newBlock(BlockTypePlain, int(elseClause.StartPoint().Row)+1)
		e.addBlock(elseBlock)
		e.addEdge(normalTail.ID, elseBlock.ID, EdgeTypeUnconditional)
		elseCurrent := elseBlock
		e.processBlock(elseClause.ChildByFieldName("body"), &elseCurrent)
		normalTail = elseCurrent
	}
	if normalTail != nil {
		tails = append(tails, normalTail)
	}

	if finallyClause != nil {
		finallyBlock := e.newBlock(BlockTypePlain, int(finallyClause.StartPoint().Row)+1)
		finallyBlock.Statements = []string{"finally"}
		e.addBlock(finallyBlock)
		for _, tail := range tails {
			e.addEdge(tail.ID, finallyBlock.ID, EdgeTypeUnconditional)
		}
		finallyCurrent := finallyBlock
		e.processBlock(e.findChildByType(finallyClause, "block"), &finallyCurrent)
		if finallyCurrent != nil {
			e.addEdge(finallyCurrent.ID, join.ID, EdgeTypeUnconditional)
		}
	} else {
		for _, tail := range tails {
			e.addEdge(tail.ID, join.ID, EdgeTypeUnconditional)
		}
	}

	if e.pruneOrphanJoin(join) {
		*currentBlock = join
	} else {
		*currentBlock = nil
	}
}

// exceptLabel renders a short label for an except clause.
func (e *pythonCFGExtractor) exceptLabel(clause *sitter.Node) string {
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "except", "except*", ":", "block", "comment":
			continue
		}
		return "except " + e.nodeText(child)
	}
	return "except"
}

// processWithStatement records the with clause on the current block and
// flattens the body into the surrounding flow.
func (e *pythonCFGExtractor) processWithStatement(node *sitter.Node, currentBlock **CFGBlock) {
	if clause := e.findChildByType(node, "with_clause"); clause != nil {
		appendStatement(*currentBlock, "with "+e.nodeText(clause), int(clause.EndPoint().Row)+1)
	}
	e.processBlock(node.ChildByFieldName("body"), currentBlock)
}

// processReturnStatement handles return statements. The return block is
// wired to the function exit in finalize.
func (e *pythonCFGExtractor) processReturnStatement(node *sitter.Node, currentBlock **CFGBlock) {
	returnBlock := e.newBlock(BlockTypeReturn, int(node.StartPoint().Row)+1)
	returnBlock.Statements = []string{e.nodeText(node)}
	e.addBlock(returnBlock)
	e.addEdge((*currentBlock).ID, returnBlock.ID, EdgeTypeUnconditional)
	e.markReturn(returnBlock)
	*currentBlock = nil
}

// processRaiseStatement handles raise statements; an uncaught raise leaves
// the function, so it is wired to the exit like a return.
func (e *pythonCFGExtractor) processRaiseStatement(node *sitter.Node, currentBlock **CFGBlock) {
	raiseBlock := e.newBlock(BlockTypeReturn, int(node.StartPoint().Row)+1)
	raiseBlock.Statements = []string{e.nodeText(node)}
	e.addBlock(raiseBlock)
	e.addEdge((*currentBlock).ID, raiseBlock.ID, EdgeTypeUnconditional)
	e.markReturn(raiseBlock)
	*currentBlock = nil
}

// processBreakStatement handles break statements, targeting the innermost
// loop exit.
func (e *pythonCFGExtractor) processBreakStatement(node *sitter.Node, currentBlock **CFGBlock) {
	appendStatement(*currentBlock, e.nodeText(node), int(node.EndPoint().Row)+1)
	if target, ok := e.breakTarget(); ok {
		e.addEdge((*currentBlock).ID, target.ID, EdgeTypeBreak)
		*currentBlock = nil
	}
}

// processContinueStatement handles continue statements, targeting the
// innermost loop header.
func (e *pythonCFGExtractor) processContinueStatement(node *sitter.Node, currentBlock **CFGBlock) {
	appendStatement(*currentBlock, e.nodeText(node), int(node.EndPoint().Row)+1)
	if target, ok := e.continueTarget(); ok {
		e.addEdge((*currentBlock).ID, target.ID, EdgeTypeContinue)
		*currentBlock = nil
	}
}

// calculateCyclomaticComplexity calculates the cyclomatic complexity.
// Formula: decision_points + 1
func (e *pythonCFGExtractor) calculateCyclomaticComplexity(node *sitter.Node) int {
	return e.countDecisionPoints(node) + 1
}

// countDecisionPoints counts branching constructs and short-circuit
// operators.
func (e *pythonCFGExtractor) countDecisionPoints(node *sitter.Node) int {
	if node == nil {
		return 0
	}

	count := 0
	switch node.Type() {
	case "if_statement", "elif_clause", "for_statement", "while_statement",
		"case_clause", "except_clause", "except_group_clause", "boolean_operator":
		count++
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		count += e.countDecisionPoints(node.Child(i))
	}

	return count
}

// forEachDescendantOfType invokes fn on every descendant of the given type,
// in document order.
func (e *pythonCFGExtractor) forEachDescendantOfType(node *sitter.Node, nodeType string, fn func(*sitter.Node)) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == nodeType {
			fn(child)
			continue
		}
		e.forEachDescendantOfType(child, nodeType, fn)
	}
}

// findChildByType finds a child node of a specific type.
func (e *pythonCFGExtractor) findChildByType(node *sitter.Node, childType string) *sitter.Node {
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
func (e *pythonCFGExtractor) nodeText(node *sitter.Node) string {
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
