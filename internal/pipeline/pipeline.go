// Package pipeline implements the Orchestrator: the top-level Plan ->
// Retrieve -> Generate -> Validate/Execute (+ repair) -> Summarize sequence
// that answers one natural-language question.
//
// Grounded on pipeline.py's NL2SQLPipeline.run in full (186 lines): the
// exact stage order, the validate/execute retry loop bounded by
// max_retries, the repair hand-off (Generator.Repair with the prior
// stage's error as hint), and the two distinct result envelope shapes
// (success vs exhausted-retries failure) are carried over in meaning.
// Stage sequencing and the Config-struct-plus-validate()-plus-constructor
// idiom follow ai/rag/pipeline.go's Pipeline/PipelineConfig/NewPipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nl2sql/pipeline/internal/diagnostics"
	"github.com/nl2sql/pipeline/internal/generator"
	"github.com/nl2sql/pipeline/internal/logging"
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/retriever"
	"github.com/nl2sql/pipeline/internal/sqlstore"
	"github.com/nl2sql/pipeline/internal/summarizer"
	"github.com/nl2sql/pipeline/internal/validator"
)

// Planner is the subset of internal/planner.Planner the Orchestrator needs.
type Planner interface {
	Analyze(question string) planner.Plan
}

// Retriever is the subset of internal/retriever.Retriever the Orchestrator
// needs.
type Retriever interface {
	Fetch(ctx context.Context, question string, plan planner.Plan) retriever.Bundle
}

// Generator is the subset of internal/generator.Generator the Orchestrator
// needs.
type Generator interface {
	Generate(ctx context.Context, question string, genCtx generator.GenContext) generator.Result
	Repair(ctx context.Context, question string, genCtx generator.GenContext, hint string) generator.Result
}

// Validator is the subset of internal/validator.Validator the Orchestrator
// needs.
type Validator interface {
	Validate(ctx context.Context, sql string) validator.Result
}

// Executor is the subset of internal/sqlstore.Store the Orchestrator needs.
type Executor interface {
	Query(ctx context.Context, sql string) (sqlstore.QueryResult, error)
}

// Summarizer is the subset of internal/summarizer.Summarizer the
// Orchestrator needs.
type Summarizer interface {
	Summarize(question string, success bool, errMsg string, rows []map[string]any) summarizer.Result
}

// Config holds the Orchestrator's wiring plus its one behavioral knob,
// matching pipeline.py's PipelineConfig(max_retries=2, sql_row_limit=200)
// (sql_row_limit lives on the Executor in this Go port, since it's the
// Executor that caps rows, not the Orchestrator).
type Config struct {
	Planner    Planner
	Retriever  Retriever
	Generator  Generator
	Validator  Validator
	Executor   Executor
	Summarizer Summarizer
	MaxRetries int
	Logger     logging.Logger
}

// validate checks the Config and applies defaults, following
// ai/rag/pipeline.go's PipelineConfig.validate().
func (c *Config) validate() error {
	if c.Planner == nil || c.Retriever == nil || c.Generator == nil ||
		c.Validator == nil || c.Executor == nil || c.Summarizer == nil {
		return errors.New("pipeline config: all of planner, retriever, generator, validator, executor, summarizer are required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("pipeline config: max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.Logger == nil {
		c.Logger = logging.Noop{}
	}
	return nil
}

// Orchestrator runs the full six-stage pipeline for one question.
type Orchestrator struct {
	planner    Planner
	retriever  Retriever
	generator  Generator
	validator  Validator
	executor   Executor
	summarizer Summarizer
	maxRetries int
	logger     logging.Logger
}

// New builds an Orchestrator from cfg, returning an error if any stage
// dependency is missing.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Orchestrator{
		planner:    cfg.Planner,
		retriever:  cfg.Retriever,
		generator:  cfg.Generator,
		validator:  cfg.Validator,
		executor:   cfg.Executor,
		summarizer: cfg.Summarizer,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}, nil
}

// Run answers one natural-language question end to end. It never returns a
// Go error: every failure mode (unsafe SQL, engine error, retries exhausted)
// is folded into Result.Success=false, matching pipeline.py's run always
// returning a result dict.
func (o *Orchestrator) Run(ctx context.Context, question string, clarified map[string]any) Result {
	requestID := uuid.New().String()
	diag := diagnostics.New()

	t0 := time.Now()
	plan := o.planner.Analyze(question)
	diag.RecordTiming("planning", int(time.Since(t0).Milliseconds()))
	diag.ChosenTables = plan.DetectedTables
	diag.DetectedCapabilities = plan.Capabilities

	o.logger.Info("pipeline plan", "request_id", requestID, "tables", plan.DetectedTables, "capabilities", plan.Capabilities)

	t1 := time.Now()
	bundle := o.retriever.Fetch(ctx, question, plan)
	diag.RecordTiming("retrieval", int(time.Since(t1).Milliseconds()))

	genCtx := generator.GenContext{Plan: plan, Bundle: bundle, ClarifiedValues: clarified}

	t2 := time.Now()
	genResult := o.generator.Generate(ctx, question, genCtx)
	diag.RecordTiming("generation", int(time.Since(t2).Milliseconds()))
	diag.GeneratedSQL = genResult.SQL

	sql := genResult.SQL
	var lastErr string

	for attempts := 0; attempts <= o.maxRetries; attempts++ {
		if ctx.Err() != nil {
			lastErr = "cancelled"
			break
		}

		tv := time.Now()
		valResult := o.validator.Validate(ctx, sql)
		diag.RecordTiming("validation", int(time.Since(tv).Milliseconds()))

		if !valResult.IsValid {
			diag.RecordValidatorFailure(valResult.Error)
			lastErr = valResult.Error
			if attempts >= o.maxRetries {
				break
			}
			repaired := o.generator.Repair(ctx, question, genCtx, valResult.Error)
			sql = repaired.SQL
			continue
		}

		te := time.Now()
		execResult, err := o.executor.Query(ctx, sql)
		diag.RecordTiming("execution", int(time.Since(te).Milliseconds()))

		if err == nil {
			diag.FinalSQL = sql

			ts := time.Now()
			summary := o.summarizer.Summarize(question, true, "", execResult.Rows)
			diag.RecordTiming("summarization", int(time.Since(ts).Milliseconds()))

			return Result{
				RequestID:    requestID,
				Success:      true,
				SQL:          sql,
				GeneratedSQL: diag.GeneratedSQL,
				Columns:      execResult.Columns,
				Rows:         execResult.Rows,
				Truncated:    execResult.Truncated,
				Summary:      summary.Summary,
				Suggestions:  summary.Suggestions,
				Capabilities: plan.Capabilities,
				TablesUsed:   diag.ChosenTables,
				Diagnostics:  diag,
			}
		}

		diag.RecordExecutorError(err.Error())
		lastErr = err.Error()
		if attempts >= o.maxRetries {
			break
		}
		repaired := o.generator.Repair(ctx, question, genCtx, err.Error())
		sql = repaired.SQL
	}

	if lastErr == "" {
		lastErr = "could not produce safe SQL"
	}
	return Result{
		RequestID:    requestID,
		Success:      false,
		SQL:          sql,
		GeneratedSQL: diag.GeneratedSQL,
		Error:        lastErr,
		Capabilities: plan.Capabilities,
		TablesUsed:   diag.ChosenTables,
		Diagnostics:  diag,
	}
}
