// Package generator implements the Generator component: turns a question +
// GenContext into a syntactically legal, safe SQL string, using
// PromptBuilder + LLM as the primary path with heuristic fallbacks.
//
// Grounded on sql_generator.py's SQLGeneratorAgent in full (581 lines):
// _try_llm_generation's attempt loop with increasing temperature,
// _parse_llm_response/_clean_llm_response (fence stripping, re-expressed via
// the teacher's ai/model/chat/parser.go stripMarkdownCodeBlock),
// _extract_problematic_columns/_create_simplified_query (heuristic column
// elision), and _try_pattern_matching (closed template fallback). The state
// names InitialAttempt/LLMAttempt(k)/HeuristicRepair/PatternFallback/
// Terminal(sql) follow spec.md §4.4 exactly.
package generator

import (
	"context"
	"fmt"

	"github.com/nl2sql/pipeline/internal/llm"
	"github.com/nl2sql/pipeline/internal/logging"
	"github.com/nl2sql/pipeline/internal/metadata"
	"github.com/nl2sql/pipeline/internal/promptbuilder"
	"github.com/nl2sql/pipeline/internal/validator"
)

// Result is the Generator's Terminal(sql) outcome plus the path that
// produced it, useful for diagnostics.
type Result struct {
	SQL        string
	Suggestion string
	Source     string // "llm", "heuristic_repair", "pattern_fallback", "exhausted"
	Attempts   int
}

const baseTemperature = 0.1

// Generator implements spec.md §4.4.
type Generator struct {
	llm            llm.Provider
	prompts        *promptbuilder.Builder
	validator      *validator.Validator
	meta           *metadata.Store
	maxLLMAttempts int
	logger         logging.Logger
}

// New builds a Generator. maxLLMAttempts is spec.md's max_llm_attempts
// (default 3).
func New(provider llm.Provider, prompts *promptbuilder.Builder, v *validator.Validator, meta *metadata.Store, maxLLMAttempts int, logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Noop{}
	}
	if maxLLMAttempts <= 0 {
		maxLLMAttempts = 3
	}
	return &Generator{llm: provider, prompts: prompts, validator: v, meta: meta, maxLLMAttempts: maxLLMAttempts, logger: logger}
}

// Generate runs the full state machine (InitialAttempt through
// PatternFallback) and always returns a Terminal result.
func (g *Generator) Generate(ctx context.Context, question string, genCtx GenContext) Result {
	return g.run(ctx, question, genCtx, g.maxLLMAttempts)
}

// Repair re-enters the state machine with genCtx.ErrorHint set, using a
// smaller attempt budget (spec.md's repair-attempt allowance), still
// falling through to HeuristicRepair then PatternFallback on exhaustion —
// per the resolved Open Question, HeuristicRepair is always tried before
// PatternFallback regardless of which subsystem produced the last error.
func (g *Generator) Repair(ctx context.Context, question string, genCtx GenContext, hint string) Result {
	genCtx.ErrorHint = hint
	return g.run(ctx, question, genCtx, 2)
}

func (g *Generator) run(ctx context.Context, question string, genCtx GenContext, maxAttempts int) Result {
	var lastSQL, lastErr string

	for k := 1; k <= maxAttempts; k++ {
		var errCtx *promptbuilder.ErrorContext
		if genCtx.ErrorHint != "" || lastErr != "" {
			msg := genCtx.ErrorHint
			if lastErr != "" {
				msg = lastErr
			}
			kind, suggestion := validator.Classify(msg)
			errCtx = &promptbuilder.ErrorContext{Kind: string(kind), Message: msg, Suggestion: suggestion}
		}

		prompt, err := g.prompts.Build(question, genCtx.Plan, genCtx.Bundle, errCtx, genCtx.ClarifiedValues)
		if err != nil {
			g.logger.Error("generator: failed to build prompt", "error", err, "attempt", k)
			lastErr = err.Error()
			continue
		}

		temperature := baseTemperature + 0.1*float64(k-1)
		raw, err := g.llm.GenerateText(ctx, prompt, llm.TextOptions{
			Temperature:    temperature,
			MaxTokens:      512,
			ResponseFormat: "json_object",
			ResponseSchema: promptbuilder.OutputJSONSchema(),
			SchemaName:     "nl2sql_output",
		})
		if err != nil {
			g.logger.Warn("generator: LLM call failed", "error", err, "attempt", k)
			lastErr = err.Error()
			continue
		}

		sql, suggestion, err := parseLLMResponse(raw)
		if err != nil {
			g.logger.Warn("generator: failed to parse LLM response", "error", err, "attempt", k)
			lastErr = err.Error()
			continue
		}
		lastSQL = sql

		res := g.validator.Validate(ctx, sql)
		if res.IsValid {
			return Result{SQL: sql, Suggestion: suggestion, Source: "llm", Attempts: k}
		}
		lastErr = res.Error
	}

	if lastSQL != "" && lastErr != "" {
		if repaired, ok := g.heuristicRepair(ctx, lastSQL, lastErr); ok {
			return repaired
		}
	}

	if fallback, ok := g.patternFallbackAttempt(ctx, question); ok {
		return fallback
	}

	return Result{SQL: "SELECT 1;", Suggestion: "Default fallback query", Source: "exhausted"}
}

// heuristicRepair strips identifiers named in lastErr from the SELECT list
// of lastSQL and re-validates, matching sql_generator.py's
// _exclude_problematic_columns path.
func (g *Generator) heuristicRepair(ctx context.Context, lastSQL, lastErr string) (Result, bool) {
	cols := extractProblematicColumns(lastErr)
	if len(cols) == 0 {
		return Result{}, false
	}
	simplified := stripProblematicColumns(lastSQL, cols)
	if simplified == lastSQL {
		return Result{}, false
	}
	res := g.validator.Validate(ctx, simplified)
	if !res.IsValid {
		return Result{}, false
	}
	return Result{
		SQL:        simplified,
		Suggestion: fmt.Sprintf("Simplified query excluding problematic column(s): %v", cols),
		Source:     "heuristic_repair",
	}, true
}

// patternFallbackAttempt matches question against the closed template set
// and validates the result before accepting it.
func (g *Generator) patternFallbackAttempt(ctx context.Context, question string) (Result, bool) {
	sql, suggestion := patternFallback(g.meta, question)
	if sql == "" {
		return Result{}, false
	}
	res := g.validator.Validate(ctx, sql)
	if !res.IsValid {
		return Result{}, false
	}
	return Result{SQL: sql, Suggestion: suggestion, Source: "pattern_fallback"}, true
}
