package cdg

import (
	"fmt"

	"github.com/l3aro/go-control-deps/pkg/cfg"
	"github.com/l3aro/go-control-deps/pkg/postdom"
)

// ExtractCDG parses a source file, builds the CFG of the named function,
// and derives its compacted control dependence graph.
func ExtractCDG(filePath, functionName string) (*Graph, error) {
	return ExtractCDGWithOptions(filePath, functionName, Options{})
}

// ExtractCDGWithOptions is ExtractCDG with construction options.
func ExtractCDGWithOptions(filePath, functionName string, opts Options) (*Graph, error) {
	cfgInfo, err := cfg.ExtractCFG(filePath, functionName)
	if err != nil {
		return nil, err
	}
	tree, err := postdom.Build(cfgInfo)
	if err != nil {
		return nil, fmt.Errorf("building post-dominator tree: %w", err)
	}
	return NewBuilder(cfgInfo, tree, opts).Build()
}
