package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/rulelens/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize describes a rule view in prose
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// View is the computed rule view to describe
	View model.RuleView

	// AllowedValues is the set of column names and cell values the summary may quote
	AllowedValues []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// QuotedValues are the backtick-quoted values found in the summary
	QuotedValues []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictValues rejects summaries quoting values absent from the view
	StrictValues bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      30,
		StrictValues: true,
		MaxTokens:    1000,
	}
}

const systemPrompt = "You describe translation rule tables precisely, quoting only values that appear in the data you are given."

// maxPromptRules caps how many merged rules are listed in the prompt
const maxPromptRules = 25

// BuildPrompt constructs the default prompt for summarizing a rule view
func BuildPrompt(view model.RuleView, allowed []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing consolidated translation rules. Each rule is one distinct combination of output attributes; its conditions list the input values that lead to it.

RULES:
1. Wrap every column name or value you mention in backticks.
2. You MUST ONLY quote values from this allowed list:
%s

3. Do not invent conditions, values or rules that are not listed below.
4. Describe what the rules do; do not judge whether they are correct.

View:
- Source: %s
- Pivot column: %s
- Selected event: %s
- Selected attributes: %s
- Rows matched: %d of %d
- Unique output rules: %d

`, joinValues(allowed), view.Source, view.Pivot, view.Selection.Primary,
		joinOrNone(view.Selection.Attributes), view.MatchedRows, view.TotalRows, view.RuleCount)

	for i, r := range view.Rules {
		if i >= maxPromptRules {
			fmt.Fprintf(&b, "... and %d more rules\n", len(view.Rules)-maxPromptRules)
			break
		}
		fmt.Fprintf(&b, "Rule %d (%d rows)\n", i+1, r.MemberCount)
		if !r.HasOutputs() {
			b.WriteString("  outputs: none\n")
		}
		for _, f := range r.Outputs {
			fmt.Fprintf(&b, "  output %s = %s\n", f.Column, f.Value)
		}
		for _, c := range r.Inputs {
			fmt.Fprintf(&b, "  when %s in %s\n", c.Column, strings.Join(c.Values, " / "))
		}
	}

	if len(view.Signals) > 0 {
		b.WriteString("\nDiagnostics:\n")
		for i, s := range view.Signals {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", s.Type, s.Description)
		}
	}

	b.WriteString("\nProvide a 3-5 sentence summary of what these rules translate and under which conditions.")
	return b.String()
}

// AllowedValues collects every column name and cell value visible in the view
func AllowedValues(view model.RuleView) []string {
	seen := map[string]bool{}
	add := func(v string) {
		if strings.TrimSpace(v) != "" {
			seen[v] = true
		}
	}

	add(view.Pivot)
	add(view.Selection.Primary)
	for _, a := range view.Selection.Attributes {
		add(a)
	}
	for _, c := range view.InputColumns {
		add(c)
	}
	for _, c := range view.OutputColumns {
		add(c)
	}
	for _, r := range view.Rules {
		for _, f := range r.Outputs {
			add(f.Value)
		}
		for _, c := range r.Inputs {
			for _, v := range c.Values {
				add(v)
			}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

var quotedPattern = regexp.MustCompile("`([^`\n]+)`")

// extractQuoted returns the distinct backtick-quoted values in text, in order of appearance
func extractQuoted(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, m := range quotedPattern.FindAllStringSubmatch(text, -1) {
		v := strings.TrimSpace(m[1])
		if v != "" && !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	return unique
}

// checkQuoted verifies that every quoted value is allowed
func checkQuoted(quoted, allowed []string) error {
	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[strings.TrimSpace(v)] = true
	}
	for _, q := range quoted {
		if !set[q] {
			return fmt.Errorf("VALUE LEAK: LLM quoted a value not present in the view: %q", q)
		}
	}
	return nil
}

// finishSummary extracts quoted values and enforces strict mode
func finishSummary(cfg Config, req SummarizeRequest, summary string) ([]string, error) {
	quoted := extractQuoted(summary)
	if cfg.StrictValues {
		if err := checkQuoted(quoted, req.AllowedValues); err != nil {
			return nil, err
		}
	}
	return quoted, nil
}

func joinValues(values []string) string {
	if len(values) == 0 {
		return "(No values available)"
	}
	var b strings.Builder
	for i, v := range values {
		if i >= 60 {
			fmt.Fprintf(&b, "\n... and %d more values", len(values)-60)
			break
		}
		fmt.Fprintf(&b, "\n- %s", v)
	}
	return b.String()
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
