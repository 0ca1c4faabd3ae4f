package extractor

import (
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/l3aro/go-control-deps/pkg/types"
)

// listGoFunctions returns the function and method declarations of a Go file.
func listGoFunctions(filePath string) ([]types.FunctionRef, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree := parser.Parse(nil, content)
	defer tree.Close()

	var refs []types.FunctionRef
	collectGoFunctions(tree.RootNode(), content, filePath, &refs)
	return refs, nil
}

func collectGoFunctions(node *sitter.Node, content []byte, filePath string, refs *[]types.FunctionRef) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration", "method_declaration":
		name := node.ChildByFieldName("name")
		if name == nil {
			return
		}
		ref := types.FunctionRef{
			Name:      nodeText(name, content),
			File:      filePath,
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
			IsMethod:  node.Type() == "method_declaration",
			Language:  "go",
		}
		if recv := node.ChildByFieldName("receiver"); recv != nil {
			ref.Receiver = receiverType(recv, content)
		}
		*refs = append(*refs, ref)
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectGoFunctions(node.Child(i), content, filePath, refs)
	}
}

// receiverType extracts the bare receiver type name from a parameter list
// like (s *Server).
func receiverType(recv *sitter.Node, content []byte) string {
	for i := 0; i < int(recv.ChildCount()); i++ {
		child := recv.Child(i)
		if child == nil || child.Type() != "parameter_declaration" {
			continue
		}
		if typ := child.ChildByFieldName("type"); typ != nil {
			return strings.TrimPrefix(nodeText(typ, content), "*")
		}
	}
	return ""
}

// nodeText extracts the text content of a node from the source.
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= uint32(len(content)) || end > uint32(len(content)) {
		return ""
	}
	return string(content[start:end])
}
