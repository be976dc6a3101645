// Package schemaindex implements the SchemaIndex leaf: a vector-searchable
// index of schema chunks with a deterministic fallback to MetadataStore when
// the vector-store backend is unavailable.
package schemaindex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nl2sql/pipeline/internal/metadata"
)

// Chunk is one matched schema document: its rendered text plus the table it
// describes. Mirrors the original system's ChromaDB document/metadata pair
// (schema_processor.py's generate_schema_description + its metadata dict).
type Chunk struct {
	Table   string
	Text    string
	Columns []string
}

// VectorStore is the external collaborator SchemaIndex queries. Out of
// scope per SPEC_FULL.md §1 (the vector store's physical backend is an
// external service); this interface is all the Retriever/SchemaIndex ever
// see of it.
type VectorStore interface {
	// Query returns up to k best-matching documents for text, most relevant
	// first. An error here is always recovered by the caller via the
	// MetadataStore fallback; it is never fatal.
	Query(ctx context.Context, text string, k int) ([]Chunk, error)
}

// Index is the SchemaIndex component: queries VectorStore, falling back to a
// deterministic MetadataStore-derived synthesis on any backend failure.
type Index struct {
	store VectorStore
	meta  *metadata.Store
}

// New builds an Index. store may be nil, in which case every lookup uses the
// MetadataStore fallback directly (no backend configured).
func New(store VectorStore, meta *metadata.Store) *Index {
	return &Index{store: store, meta: meta}
}

// Query returns up to k chunks matching text. On any VectorStore error, or
// when no store is configured, or the store returns zero matches, it
// synthesizes one chunk per known table directly from MetadataStore — the
// deterministic fallback spec.md §4.2 requires.
func (idx *Index) Query(ctx context.Context, text string, k int) []Chunk {
	if idx.store != nil {
		chunks, err := idx.store.Query(ctx, text, k)
		if err == nil && len(chunks) > 0 {
			return chunks
		}
	}
	return idx.fallback(k)
}

// fallback synthesizes one chunk per table, in sorted order, truncated to k
// if k > 0 (k<=0 means "all tables").
func (idx *Index) fallback(k int) []Chunk {
	names := idx.meta.TableNames()
	chunks := make([]Chunk, 0, len(names))
	for _, name := range names {
		chunks = append(chunks, synthesizeChunk(idx.meta, name))
	}
	if k > 0 && len(chunks) > k {
		chunks = chunks[:k]
	}
	return chunks
}

// synthesizeChunk builds a schema chunk directly from MetadataStore for
// table, in the same "Table '<t>': <description>\n- <col>: Valid values = …"
// shape the original schema_processor.py/retriever.py fallback produces.
func synthesizeChunk(meta *metadata.Store, table string) Chunk {
	t, _ := meta.Table(table)
	var b strings.Builder
	fmt.Fprintf(&b, "Table '%s': %s", table, t.Description)
	cols := meta.Columns(table)
	for _, col := range cols {
		c, _ := meta.Column(table, col)
		if len(c.DistinctValues) > 0 {
			fmt.Fprintf(&b, "\n- %s: Valid values = %s", col, strings.Join(c.DistinctValues, ", "))
		}
	}
	return Chunk{Table: table, Text: b.String(), Columns: cols}
}

// FallbackVectorStore is a pack-dependency-free VectorStore implementation:
// a plain lexical scorer over MetadataStore-synthesized chunks, used when no
// external vector-store endpoint is configured. It never errors — by design
// the degraded path must always succeed.
type FallbackVectorStore struct {
	meta *metadata.Store
}

// NewFallbackVectorStore builds a FallbackVectorStore over meta.
func NewFallbackVectorStore(meta *metadata.Store) *FallbackVectorStore {
	return &FallbackVectorStore{meta: meta}
}

// Query scores every table's synthesized chunk by token overlap with text
// and returns the top k, highest score first.
func (f *FallbackVectorStore) Query(_ context.Context, text string, k int) ([]Chunk, error) {
	queryTokens := tokenize(text)
	type scored struct {
		chunk Chunk
		score int
	}
	var scoredChunks []scored
	for _, table := range f.meta.TableNames() {
		c := synthesizeChunk(f.meta, table)
		scoredChunks = append(scoredChunks, scored{chunk: c, score: overlapScore(queryTokens, tokenize(c.Text))})
	}
	sort.SliceStable(scoredChunks, func(i, j int) bool { return scoredChunks[i].score > scoredChunks[j].score })
	if k > 0 && len(scoredChunks) > k {
		scoredChunks = scoredChunks[:k]
	}
	out := make([]Chunk, len(scoredChunks))
	for i, s := range scoredChunks {
		out[i] = s.chunk
	}
	return out, nil
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func overlapScore(a, b map[string]struct{}) int {
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}
