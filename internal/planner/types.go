package planner

// Clarification is one unresolved ambiguity the Planner flags for the
// caller; advisory only, never short-circuits generation (§9 Open Question).
type Clarification struct {
	Field   string
	Prompt  string
	Type    string // "number", "text", or "select"
	Default any
	Options []string `json:"options,omitempty"`
}

// Plan is the Planner's output: everything downstream stages need to know
// about what the question is asking for.
type Plan struct {
	Question       string
	DetectedTables []string // ordered, unique, first-occurrence order
	Capabilities   []string // sorted, unique
	Clarifications []Clarification
	FollowUps      []string // capped at 4
}

// HasCapability reports whether tag is present in the Plan's capability set.
func (p Plan) HasCapability(tag string) bool {
	for _, c := range p.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}
