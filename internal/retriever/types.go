package retriever

import "github.com/nl2sql/pipeline/internal/exemplar"

// Bundle is the Retriever's output: a compact textual schema context plus
// enumerated value hints, foreign-key hints baked into schema chunk text,
// and candidate worked exemplars.
type Bundle struct {
	SchemaChunks []string
	ValueHints   map[string][]string // qualified "table.column" -> enum domain
	Exemplars    []exemplar.Example
	TablesFound  []string // unique, match order preserved
}
