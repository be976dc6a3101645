package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripMarkdownCodeBlock removes a single outermost ```/```json fence from
// rawLLMOutput, adapted from the teacher's ai/model/chat/parser.go
// stripMarkdownCodeBlock: only the outermost fence is stripped, so an inner
// fenced snippet the model echoed back (e.g. in an explanation) survives
// intact, per the resolved Open Question on fence-stripping depth.
func stripMarkdownCodeBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 6 {
		return trimmed
	}
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") {
		return trimmed
	}
	newlineIdx := strings.Index(trimmed, "\n")
	if newlineIdx == -1 {
		return strings.TrimSpace(trimmed[3 : len(trimmed)-3])
	}
	content := trimmed[newlineIdx+1 : len(trimmed)-3]
	return strings.TrimSpace(content)
}

// parseLLMResponse extracts SQLQuery/Suggestion from raw, tolerating a
// single markdown fence wrapper. Both fields must be non-empty.
func parseLLMResponse(raw string) (sql, suggestion string, err error) {
	cleaned := stripMarkdownCodeBlock(raw)
	cleaned = strings.Trim(cleaned, "`")

	var resp llmResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return "", "", fmt.Errorf("parse LLM response: %w", err)
	}
	sql = strings.TrimSpace(resp.SQLQuery)
	suggestion = strings.TrimSpace(resp.Suggestion)
	if sql == "" || suggestion == "" {
		return "", "", fmt.Errorf("LLM response missing SQLQuery or Suggestion")
	}
	return sql, suggestion, nil
}
