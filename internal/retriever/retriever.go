// Package retriever implements the Retriever component: given a Plan,
// produce a RetrievalBundle of schema text, value hints, and exemplars.
//
// Grounded on the original system's retriever.py: the retrieval-query
// construction, top-K=3 lookup, value-hint line format
// ("- <col>: Valid values = ...") and metadata fallback are carried over in
// meaning.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/nl2sql/pipeline/internal/exemplar"
	"github.com/nl2sql/pipeline/internal/logging"
	"github.com/nl2sql/pipeline/internal/metadata"
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/schemaindex"
)

// Retriever implements the Retriever contract against a SchemaIndex and
// MetadataStore.
type Retriever struct {
	index  *schemaindex.Index
	meta   *metadata.Store
	topK   int
	logger logging.Logger
}

// New builds a Retriever. topK is the spec's top_k_schema config value
// (default 3).
func New(index *schemaindex.Index, meta *metadata.Store, topK int, logger logging.Logger) *Retriever {
	if logger == nil {
		logger = logging.Noop{}
	}
	return &Retriever{index: index, meta: meta, topK: topK, logger: logger}
}

// BuildRetrievalQuery constructs the retrieval query text per spec.md §4.2
// step 1: "tables: <joined detected tables> query: <original question>".
func BuildRetrievalQuery(question string, plan planner.Plan) string {
	return fmt.Sprintf("tables: %s query: %s", strings.Join(plan.DetectedTables, ", "), question)
}

// Fetch implements the Retriever contract: always returns, degrading to the
// MetadataStore fallback through SchemaIndex itself on backend failure.
func (r *Retriever) Fetch(ctx context.Context, question string, plan planner.Plan) Bundle {
	query := BuildRetrievalQuery(question, plan)

	var chunks []schemaindex.Chunk
	if len(plan.DetectedTables) > 1 {
		chunks = r.fetchPerTable(ctx, question, plan.DetectedTables)
	} else {
		chunks = r.index.Query(ctx, query, r.topK)
	}

	var schemaChunks []string
	var tablesFound []string
	valueHints := map[string][]string{}

	for _, c := range chunks {
		schemaChunks = append(schemaChunks, c.Text)
		if c.Table != "" {
			tablesFound = append(tablesFound, c.Table)
		}
	}
	tablesFound = lo.Uniq(tablesFound)

	for _, table := range tablesFound {
		for _, col := range r.meta.Columns(table) {
			domain := r.meta.DistinctValues(table, col)
			if len(domain) == 0 {
				continue
			}
			qualified := table + "." + col
			valueHints[qualified] = domain
			schemaChunks = append(schemaChunks, fmt.Sprintf("- %s: Valid values = %s", col, strings.Join(domain, ", ")))
		}
	}

	exemplars := exemplar.Relevant(question, plan.DetectedTables, 2)

	return Bundle{
		SchemaChunks: schemaChunks,
		ValueHints:   valueHints,
		Exemplars:    exemplars,
		TablesFound:  tablesFound,
	}
}

// fetchPerTable fans out one SchemaIndex lookup per detected table, bounded
// by errgroup so a failure/degradation on one table's lookup never blocks or
// fails the others — grounded on ai/rag/pipeline.go's retrieveByQueries
// errgroup fan-out, adapted to this package's sequential-per-request
// contract (this is intra-stage concurrency only, see SPEC_FULL.md §4.2).
func (r *Retriever) fetchPerTable(ctx context.Context, question string, tables []string) []schemaindex.Chunk {
	results := make([][]schemaindex.Chunk, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			q := fmt.Sprintf("table: %s query: %s", table, question)
			results[i] = r.index.Query(gctx, q, 1)
			return nil
		})
	}
	_ = g.Wait() // per-table degradation only; SchemaIndex.Query itself never errors out

	var merged []schemaindex.Chunk
	seen := map[string]struct{}{}
	for _, chunks := range results {
		for _, c := range chunks {
			if _, ok := seen[c.Table]; ok {
				continue
			}
			seen[c.Table] = struct{}{}
			merged = append(merged, c)
		}
	}
	if len(merged) < r.topK {
		for _, c := range r.index.Query(ctx, BuildRetrievalQueryPlain(question, tables), r.topK) {
			if _, ok := seen[c.Table]; ok {
				continue
			}
			seen[c.Table] = struct{}{}
			merged = append(merged, c)
			if len(merged) >= r.topK {
				break
			}
		}
	}
	return merged
}

// BuildRetrievalQueryPlain is BuildRetrievalQuery without a Plan, used for
// the supplementary overall-index lookup in fetchPerTable.
func BuildRetrievalQueryPlain(question string, tables []string) string {
	return fmt.Sprintf("tables: %s query: %s", strings.Join(tables, ", "), question)
}
