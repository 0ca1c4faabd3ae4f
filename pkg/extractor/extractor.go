// Package extractor lists the functions defined in a source file. The warm
// pipeline uses it to enumerate what to build; the functions command exposes
// it directly.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-control-deps/pkg/types"
)

// ListFunctions parses a source file and returns the functions and methods
// defined in it, in source order. The file's language is chosen by
// extension.
func ListFunctions(filePath string) ([]types.FunctionRef, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".go":
		return listGoFunctions(filePath)
	case ".py":
		return listPythonFunctions(filePath)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filePath)
	}
}

// IsSupported reports whether function listing is available for the given
// file path.
func IsSupported(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".go", ".py":
		return true
	default:
		return false
	}
}

// LanguageFor returns the language name used in config and reports for a
// file path, or empty when the file is not supported.
func LanguageFor(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	default:
		return ""
	}
}
