// Package llm defines the LLM provider interface consumed by the Generator
// and PromptBuilder/Retriever (for embeddings), plus an openai-go/v3-backed
// implementation.
//
// Grounded on llm_provider.py's LLMProvider ABC / OpenAIProvider (the
// generateText/generateEmbeddings contract, env-var configuration) and on
// the teacher's ai/model/chat.Model interface shape.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned in place of spec.md's "null" sentinel when the
// provider's own retries are exhausted.
var ErrUnavailable = errors.New("llm: provider unavailable")

// TextOptions configures a GenerateText call.
type TextOptions struct {
	Temperature    float64
	MaxTokens      int
	SystemMessage  string
	ResponseFormat string // e.g. "json_object"; empty means provider default
	// ResponseSchema, when set, requests a structured-output response
	// constrained to this JSON schema (e.g. *jsonschema.Schema) instead of
	// the looser ResponseFormat; SchemaName labels it for the provider.
	ResponseSchema any
	SchemaName     string
}

// Provider is the external LLM collaborator; out of scope per SPEC_FULL.md
// §1 (the vendor and its transport are not this system's job), but its
// contract is.
type Provider interface {
	// GenerateText returns ErrUnavailable if the call failed after the
	// provider's own retries.
	GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error)
	// GenerateEmbeddings returns one embedding vector per input text, in
	// order, or ErrUnavailable.
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}
