package cfg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ExtractCFG extracts the Control Flow Graph from a file for the specified
// function. It dispatches to the language-specific extractor based on the
// file extension.
func ExtractCFG(filePath string, functionName string) (*CFGInfo, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".go":
		return extractGoCFG(filePath, functionName)
	case ".py":
		return extractPythonCFG(filePath, functionName)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filePath)
	}
}

// IsSupported reports whether control flow extraction is available for the
// given file path.
func IsSupported(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".go", ".py":
		return true
	default:
		return false
	}
}
