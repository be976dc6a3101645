package schemaindex

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// Embedder produces a single embedding vector for text. Bound to
// llm.Provider.GenerateEmbeddings by the caller that wires QdrantVectorStore
// together, keeping this package free of an LLM-client dependency.
type Embedder func(ctx context.Context, text string) ([]float32, error)

// QdrantVectorStore is the concrete VectorStore adapter talking to a Qdrant
// collection of schema chunks. The vector store itself is out of scope per
// SPEC_FULL.md §1 (an external service); this is only the client-side shape
// the Retriever consumes.
type QdrantVectorStore struct {
	client     *qdrant.Client
	collection string
	embed      Embedder
}

// NewQdrantVectorStore dials addr (host:port of the Qdrant gRPC endpoint) and
// targets collection, using embed to vectorize query text.
func NewQdrantVectorStore(addr, collection string, embed Embedder) (*QdrantVectorStore, error) {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("schemaindex: invalid qdrant address %q: %w", addr, err)
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("schemaindex: connect to qdrant at %q: %w", addr, err)
	}
	return &QdrantVectorStore{client: client, collection: collection, embed: embed}, nil
}

// Query embeds text and searches the collection for its k nearest schema
// chunks, reconstructing each Chunk from the point's payload (written by the
// out-of-scope ingestion job in the same shape schema_processor.py produces:
// "table", "columns_str", "foreign_keys_str").
func (q *QdrantVectorStore) Query(ctx context.Context, text string, k int) ([]Chunk, error) {
	vec, err := q.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("schemaindex: embed query: %w", err)
	}

	limit := uint64(k)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("schemaindex: qdrant query: %w", err)
	}

	chunks := make([]Chunk, 0, len(points))
	for _, pt := range points {
		payload := pt.GetPayload()
		table := stringField(payload, "table")
		docText := stringField(payload, "description")
		if docText == "" {
			docText = stringField(payload, "content")
		}
		var cols []string
		if colsStr := stringField(payload, "columns_str"); colsStr != "" {
			cols = splitComma(colsStr)
		}
		chunks = append(chunks, Chunk{Table: table, Text: docText, Columns: cols})
	}
	return chunks, nil
}

func stringField(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || (i+1 < len(s) && s[i] == ',' && s[i+1] == ' ') {
			end := i
			if end > start {
				out = append(out, s[start:end])
			}
			i++
			start = i + 1
		}
	}
	return out
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
