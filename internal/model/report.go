package model

// RuleView is the complete answer to one browse interaction.
// It is a pure function of the loaded table and the selection.
type RuleView struct {
	Source        string    `json:"source"`                   // Where the table was loaded from
	Pivot         string    `json:"pivot"`                    // Pivot (primary) column name
	InputColumns  []string  `json:"input_columns"`
	OutputColumns []string  `json:"output_columns"`
	Selection     Selection `json:"selection"`

	TotalRows   int `json:"total_rows"`   // Rows in the loaded table
	MatchedRows int `json:"matched_rows"` // Rows surviving both filter stages

	Rules     []MergedRule `json:"rules"`
	RuleCount int          `json:"rule_count"`

	Signals []Signal `json:"signals,omitempty"` // Diagnostics, never change Rules

	LLM *LLMSummary `json:"llm,omitempty"` // Optional LLM summary (separate, never affects rules)
}

// IsEmpty reports whether no rule matched the selection
func (v *RuleView) IsEmpty() bool {
	return v == nil || len(v.Rules) == 0
}

// Signal is a diagnostic observation about a view with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalNoMatches         SignalType = "no_matches"          // Selection matched zero rows
	SignalEmptyOutput       SignalType = "empty_output"        // Rules without any output attribute
	SignalUnconstrained     SignalType = "unconstrained_rule"  // Rules without any input condition
	SignalMergedRows        SignalType = "merged_rows"         // Rows folded into shared rules
	SignalNegatedConditions SignalType = "negated_conditions"  // Rules carrying NOT conditions
	SignalDuplicateRows     SignalType = "duplicate_rows"      // Identical rows in the matched set
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMSummary contains an optional LLM-generated description of a view.
// It is produced after the rules are computed and never alters them.
type LLMSummary struct {
	Enabled      bool     `json:"enabled"`
	Provider     string   `json:"provider,omitempty"` // openai, anthropic, ollama
	Model        string   `json:"model,omitempty"`
	StrictValues bool     `json:"strict_values"` // Whether quoted values were checked against the view
	SummaryMD    string   `json:"summary_md,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}
