package scanner

import (
	"strings"
)

// languageMap maps file extensions to the languages the CFG extractors can
// parse. Anything else is skipped by the scanner.
var languageMap = map[string]string{
	".go":  "go",
	".py":  "python",
	".pyw": "python",
	".pyi": "python",
}

// DetectLanguage returns the language for a file extension, or an empty
// string when the extension is not an analyzable source file.
func DetectLanguage(ext string) string {
	return languageMap[strings.ToLower(ext)]
}
