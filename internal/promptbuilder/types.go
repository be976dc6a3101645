package promptbuilder

// HistoryEntry records one prior turn of the session for inclusion in later
// prompts, matching the original system's QueryHistory dataclass.
type HistoryEntry struct {
	Question       string
	SQL            string
	Suggestion     string
	Successful     bool
	ErrorContext   map[string]any
	ReasoningSteps []string
}

// ErrorContext carries the prior attempt's failure into a repair prompt.
type ErrorContext struct {
	Kind       string
	Message    string
	Suggestion string
}

// Output is the structured shape the Generator asks the LLM to emit,
// mirroring llm_prompt_builder_new.py's output_format.structure.
type Output struct {
	SQLQuery   string    `json:"SQLQuery" jsonschema_description:"The executable SQL query that fulfills the request"`
	Suggestion string    `json:"Suggestion" jsonschema_description:"A natural language description of what the SQL query does"`
	Reasoning  Reasoning `json:"Reasoning"`
}

// Reasoning is the structured explanation accompanying an Output.
type Reasoning struct {
	IdentifiedEntities  []string `json:"identified_entities"`
	JoinLogic           []string `json:"join_logic"`
	AggregationChoices  []string `json:"aggregation_choices,omitempty"`
	FilterConditions    []string `json:"filter_conditions"`
}
