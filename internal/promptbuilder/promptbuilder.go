// Package promptbuilder implements the PromptBuilder component: it renders
// a Plan, a RetrievalBundle, recent history, and an optional prior error
// into the single structured prompt string the Generator sends to the LLM,
// plus the JSON-schema description of the expected response shape.
//
// Grounded on llm_prompt_builder_new.py's PromptingAgent.build_prompt in
// full (544 lines): the critical_requirements/analysis_steps/task/
// schema_context/reasoning/examples/requirements document shape and the
// exemplar-selection and chain-of-thought algorithms are carried over in
// meaning, re-expressed as a Go struct marshaled to JSON rather than a
// hand-built dict.
package promptbuilder

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkoukk/tiktoken-go"

	"github.com/nl2sql/pipeline/internal/exemplar"
	"github.com/nl2sql/pipeline/internal/metadata"
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/retriever"
)

// doc mirrors the Python prompt's top-level document shape.
type doc struct {
	CriticalRequirements map[string][]string    `json:"critical_requirements"`
	AnalysisSteps        []string               `json:"analysis_steps"`
	Task                 taskSection            `json:"task"`
	SchemaContext        schemaContext          `json:"schema_context"`
	Reasoning            reasoningSection       `json:"reasoning"`
	Examples             []exampleSection       `json:"examples"`
	Requirements         map[string][]string    `json:"requirements"`
	OutputSchema         *jsonschema.Schema     `json:"output_format_schema"`
	ErrorContext         *errorContextSection   `json:"error_context,omitempty"`
	History              []historySection       `json:"history,omitempty"`
	ClarifiedValues      map[string]any         `json:"clarified_values,omitempty"`
}

type taskSection struct {
	Objective   string `json:"objective"`
	InputQuery  string `json:"input_query"`
	Context     string `json:"context"`
}

type schemaContext struct {
	Tables        map[string]any `json:"tables"`
	ValueDomains  map[string]any `json:"value_domains"`
	SchemaChunks  []string       `json:"schema_chunks"`
}

type reasoningSection struct {
	ChainOfThought       chainOfThoughtSection `json:"chain_of_thought"`
	DetectedCapabilities []string              `json:"detected_capabilities"`
	RequiredTables       []string              `json:"required_tables"`
}

type chainOfThoughtSection struct {
	Steps       []string `json:"steps"`
	Explanation string   `json:"explanation"`
}

type exampleSection struct {
	NaturalLanguage string        `json:"natural_language"`
	Output          exampleOutput `json:"output"`
}

type exampleOutput struct {
	SQLQuery   string    `json:"SQLQuery"`
	Suggestion string    `json:"Suggestion"`
	Reasoning  Reasoning `json:"Reasoning"`
}

type errorContextSection struct {
	PreviousError   ErrorContext `json:"previous_error"`
	CorrectionFocus []string     `json:"correction_focus"`
}

type historySection struct {
	Question   string `json:"question"`
	SQL        string `json:"sql"`
	Successful bool   `json:"successful"`
}

var criticalRequirements = map[string][]string{
	"schema_adherence": {
		"ONLY use columns that exist in the provided schema metadata",
		"Verify each column name against the schema before using",
		"Check data types and constraints from schema",
	},
	"aggregation_guidelines": {
		"Add COUNT, SUM, AVG where relevant to provide insights",
		"Include GROUP BY when using aggregations",
		"Consider HAVING clauses for aggregate filters",
	},
	"join_validation": {
		"Verify all required joins based on foreign key relationships",
		"Use appropriate JOIN types (LEFT, INNER) based on requirements",
		"Include all necessary join conditions",
	},
	"where_conditions": {
		"Add status='active' checks where applicable",
		"Include date range filters when temporal context exists",
		"Validate values against domain constraints",
	},
}

var analysisSteps = []string{
	"1. Identify entities and columns from schema metadata",
	"2. Map identified elements to relevant tables/columns",
	"3. Plan necessary joins using foreign key relationships",
	"4. Determine required aggregations and grouping",
	"5. Add appropriate WHERE conditions and filters",
	"6. Structure the final SQL query",
	"7. Validate against schema constraints",
	"8. Provide reasoning for choices made",
}

var requirements = map[string][]string{
	"output_format": {
		"Return a JSON object with SQLQuery, Suggestion, and Reasoning",
		"SQLQuery must contain only the executable SQL query",
		"Suggestion must provide a clear description of the query's purpose",
		"Reasoning must explain all key decisions made",
	},
	"schema_validation": {
		"Verify every column exists in schema",
		"Check data types match schema",
		"Validate against domain constraints",
	},
	"join_requirements": {
		"Use proper table aliases",
		"Include all necessary join conditions",
		"Follow foreign key relationships",
	},
	"aggregation_rules": {
		"Add appropriate GROUP BY clauses",
		"Consider HAVING for aggregate filters",
		"Use DISTINCT when needed",
	},
	"filter_guidelines": {
		"Add status checks where relevant",
		"Include date filters when needed",
		"Validate literal values",
	},
}

// Builder renders prompts against a fixed schema and a rolling history.
type Builder struct {
	meta        *metadata.Store
	history     *History
	tokenBudget int
	enc         *tiktoken.Tiktoken
}

// New builds a Builder. tokenBudget is spec.md's prompt_token_budget
// (default 6000); if the tiktoken encoder cannot be loaded, token budgeting
// is skipped rather than failing prompt construction.
func New(meta *metadata.Store, history *History, tokenBudget int) *Builder {
	enc, _ := tiktoken.GetEncoding("cl100k_base")
	return &Builder{meta: meta, history: history, tokenBudget: tokenBudget, enc: enc}
}

// Build renders the full structured prompt for one generation attempt.
// clarified optionally supplies the clarification answers collected for the
// session (spec.md's GenContext.clarified_values); at most the first map is
// used.
func (b *Builder) Build(question string, plan planner.Plan, bundle retriever.Bundle, errCtx *ErrorContext, clarified ...map[string]any) (string, error) {
	tables := map[string]any{}
	valueDomains := map[string]any{}
	for _, table := range plan.DetectedTables {
		t, ok := b.meta.Table(table)
		if !ok {
			continue
		}
		cols := map[string]any{}
		for name, col := range t.Columns {
			entry := map[string]any{"type": col.Type}
			if col.PrimaryKey {
				entry["primary_key"] = true
			}
			if len(col.DistinctValues) > 0 {
				entry["valid_values"] = col.DistinctValues
				valueDomains[table+"."+name] = col.DistinctValues
			}
			cols[name] = entry
		}
		tables[table] = map[string]any{
			"description": t.Description,
			"columns":     cols,
		}
	}

	d := doc{
		CriticalRequirements: criticalRequirements,
		AnalysisSteps:        analysisSteps,
		Task: taskSection{
			Objective:  "Generate a SQLite SQL query",
			InputQuery: question,
			Context:    "Banking database query generation",
		},
		SchemaContext: schemaContext{
			Tables:       tables,
			ValueDomains: valueDomains,
			SchemaChunks: bundle.SchemaChunks,
		},
		Reasoning: reasoningSection{
			ChainOfThought: chainOfThoughtSection{
				Steps:       chainOfThought(b.meta, question, plan),
				Explanation: "Following systematic analysis process",
			},
			DetectedCapabilities: plan.Capabilities,
			RequiredTables:       plan.DetectedTables,
		},
		Examples:     renderExamples(bundle.Exemplars),
		Requirements: requirements,
		OutputSchema: OutputJSONSchema(),
	}

	if errCtx != nil {
		d.ErrorContext = &errorContextSection{
			PreviousError: *errCtx,
			CorrectionFocus: []string{
				"Verify column names against schema",
				"Check join conditions",
				"Validate value domains",
				"Review aggregation logic",
			},
		}
	}

	for _, h := range b.history.Recent() {
		d.History = append(d.History, historySection{Question: h.Question, SQL: h.SQL, Successful: h.Successful})
	}

	if len(clarified) > 0 && len(clarified[0]) > 0 {
		d.ClarifiedValues = clarified[0]
	}

	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}
	return b.trimToBudget(raw, d), nil
}

// renderExamples converts exemplar.Example into the prompt's example shape.
func renderExamples(examples []exemplar.Example) []exampleSection {
	out := make([]exampleSection, 0, len(examples))
	for _, ex := range examples {
		joinLogic := make([]string, 0, len(ex.KeyColumns))
		for _, col := range ex.KeyColumns {
			joinLogic = append(joinLogic, "Joining "+col)
		}
		out = append(out, exampleSection{
			NaturalLanguage: ex.Question,
			Output: exampleOutput{
				SQLQuery:   strings.TrimSpace(ex.SQL),
				Suggestion: ex.Suggestion,
				Reasoning: Reasoning{
					IdentifiedEntities: []string{"Using primary data for main entity", "Using related info for related data"},
					JoinLogic:          joinLogic,
					FilterConditions:   ex.Conditions,
				},
			},
		})
	}
	return out
}

// trimToBudget drops the history, then schema chunks one at a time from the
// end of the list, until the rendered prompt fits tokenBudget. No other
// section is trimmed, so once every schema chunk is gone the result can still
// exceed the budget. It returns the full document if the encoder is
// unavailable or the budget is unset/already satisfied.
func (b *Builder) trimToBudget(raw []byte, d doc) string {
	if b.enc == nil || b.tokenBudget <= 0 {
		return string(raw)
	}
	text := string(raw)
	if len(b.enc.Encode(text, nil, nil)) <= b.tokenBudget {
		return text
	}

	d.History = nil
	if reencoded, ok := b.reencode(d); ok {
		text = reencoded
	}
	if len(b.enc.Encode(text, nil, nil)) <= b.tokenBudget {
		return text
	}

	for len(d.SchemaContext.SchemaChunks) > 0 {
		d.SchemaContext.SchemaChunks = d.SchemaContext.SchemaChunks[:len(d.SchemaContext.SchemaChunks)-1]
		reencoded, ok := b.reencode(d)
		if !ok {
			break
		}
		text = reencoded
		if len(b.enc.Encode(text, nil, nil)) <= b.tokenBudget {
			break
		}
	}
	return text
}

func (b *Builder) reencode(d doc) (string, bool) {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", false
	}
	return string(raw), true
}

var (
	outputSchemaOnce sync.Once
	outputSchema     *jsonschema.Schema
)

// OutputJSONSchema returns the JSON schema describing the expected
// {SQLQuery, Suggestion, Reasoning} output shape, reflected once via
// invopop/jsonschema over Output and cached for every subsequent call —
// the Generator attaches it to the LLM call's response format, and Build
// embeds it in the rendered prompt's output_format_schema field so both
// paths describe the same contract.
func OutputJSONSchema() *jsonschema.Schema {
	outputSchemaOnce.Do(func() {
		outputSchema = jsonschema.Reflect(&Output{})
	})
	return outputSchema
}
