// Package types defines the data structures shared across the analysis
// pipeline: function listings, warm reports, and query verdicts.
package types

// FunctionRef identifies one function definition inside a source file.
type FunctionRef struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	IsMethod  bool   `json:"is_method"`
	IsAsync   bool   `json:"is_async,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
	Language  string `json:"language"`
}

// QualifiedName returns the name prefixed with the receiver for methods, so
// two methods of the same name on different types stay distinguishable.
func (f FunctionRef) QualifiedName() string {
	if f.Receiver != "" {
		return f.Receiver + "." + f.Name
	}
	return f.Name
}

// FileReport summarizes warming one source file.
type FileReport struct {
	Path      string   `json:"path"`
	Functions int      `json:"functions"`
	Cached    int      `json:"cached"`
	Skipped   bool     `json:"skipped,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// WarmReport summarizes a whole warm run over a project tree.
type WarmReport struct {
	Root          string       `json:"root"`
	FilesScanned  int          `json:"files_scanned"`
	FilesSkipped  int          `json:"files_skipped"`
	GraphsBuilt   int          `json:"graphs_built"`
	Failures      int          `json:"failures"`
	DurationMilli int64        `json:"duration_ms"`
	Files         []FileReport `json:"files,omitempty"`
}

// QueryVerdict is the answer to a controls/influences question.
type QueryVerdict struct {
	FunctionName string `json:"function_name"`
	BlockA       string `json:"block_a"`
	BlockB       string `json:"block_b"`
	Predicate    string `json:"predicate"`
	Holds        bool   `json:"holds"`
}
