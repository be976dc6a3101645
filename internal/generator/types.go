package generator

import (
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/retriever"
)

// GenContext is everything the Generator needs beyond the raw question,
// per spec.md's GenContext row: Plan fields + RetrievalBundle + optional
// error hint + clarified values.
type GenContext struct {
	Plan            planner.Plan
	Bundle          retriever.Bundle
	ErrorHint       string
	ClarifiedValues map[string]any
}

// llmResponse is the parsed {SQLQuery, Suggestion} pair extracted from the
// model's structured JSON reply.
type llmResponse struct {
	SQLQuery   string `json:"SQLQuery"`
	Suggestion string `json:"Suggestion"`
}
