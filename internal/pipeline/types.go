package pipeline

import (
	"github.com/nl2sql/pipeline/internal/diagnostics"
)

// Result is the Orchestrator's final envelope, matching pipeline.py's two
// return shapes (success dict and failure dict) folded into one struct with
// Success discriminating which fields are meaningful.
type Result struct {
	RequestID    string
	Success      bool
	SQL          string
	GeneratedSQL string
	Error        string `json:"error,omitempty"`

	Columns   []string
	Rows      []map[string]any
	Truncated bool

	Summary      string
	Suggestions  []string
	Capabilities []string
	TablesUsed   []string

	Diagnostics *diagnostics.Diagnostics
}
