package extractor

import (
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/l3aro/go-control-deps/pkg/types"
)

// listPythonFunctions returns the def and async def definitions of a Python
// file, including methods defined inside classes.
func listPythonFunctions(filePath string) ([]types.FunctionRef, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree := parser.Parse(nil, content)
	defer tree.Close()

	var refs []types.FunctionRef
	collectPythonFunctions(tree.RootNode(), content, filePath, "", &refs)
	return refs, nil
}

func collectPythonFunctions(node *sitter.Node, content []byte, filePath, class string, refs *[]types.FunctionRef) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_definition":
		name := node.ChildByFieldName("name")
		if name == nil {
			return
		}
		ref := types.FunctionRef{
			Name:      nodeText(name, content),
			File:      filePath,
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
			IsMethod:  class != "",
			IsAsync:   isAsyncDef(node),
			Receiver:  class,
			Language:  "python",
		}
		*refs = append(*refs, ref)

		// Nested defs keep the enclosing function as context, not the class.
		if body := node.ChildByFieldName("body"); body != nil {
			collectPythonFunctions(body, content, filePath, "", refs)
		}
		return

	case "class_definition":
		className := ""
		if name := node.ChildByFieldName("name"); name != nil {
			className = nodeText(name, content)
		}
		if body := node.ChildByFieldName("body"); body != nil {
			collectPythonFunctions(body, content, filePath, className, refs)
		}
		return

	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			collectPythonFunctions(def, content, filePath, class, refs)
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectPythonFunctions(node.Child(i), content, filePath, class, refs)
	}
}

// isAsyncDef reports whether a function_definition node starts with the
// async keyword.
func isAsyncDef(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "async" {
			return true
		}
		if child.Type() == "def" {
			return false
		}
	}
	return false
}
