// Package diagnose derives informational signals from a computed rule view.
// Signals describe the view; they never change which rules are shown.
package diagnose

import (
	"fmt"
	"strings"

	"github.com/ppiankov/rulelens/internal/model"
)

// Diagnoser generates signals for a selection's matched rows and merged rules
type Diagnoser struct{}

// NewDiagnoser creates a new diagnoser
func NewDiagnoser() *Diagnoser {
	return &Diagnoser{}
}

// Diagnose returns the signals that apply, in a fixed order
func (d *Diagnoser) Diagnose(schema model.Schema, sel model.Selection, matched []model.Row, rules []model.MergedRule) []model.Signal {
	signals := []model.Signal{}

	if len(rules) == 0 {
		return append(signals, d.noMatches(sel))
	}

	if s, ok := d.emptyOutput(rules); ok {
		signals = append(signals, s)
	}
	if s, ok := d.unconstrained(schema, rules); ok {
		signals = append(signals, s)
	}
	if s, ok := d.mergedRows(len(matched), rules); ok {
		signals = append(signals, s)
	}
	if s, ok := d.negatedConditions(rules); ok {
		signals = append(signals, s)
	}
	if s, ok := d.duplicateRows(matched); ok {
		signals = append(signals, s)
	}

	return signals
}

func (d *Diagnoser) noMatches(sel model.Selection) model.Signal {
	attrs := sel.Normalized().Attributes
	if attrs == nil {
		attrs = []string{}
	}
	return model.Signal{
		Type:        model.SignalNoMatches,
		Severity:    model.SeverityWarning,
		Description: "No rules found for the selected criteria.",
		Data: map[string]interface{}{
			"primary":    sel.Primary,
			"attributes": attrs,
		},
	}
}

// emptyOutput flags rules whose every output cell is blank
func (d *Diagnoser) emptyOutput(rules []model.MergedRule) (model.Signal, bool) {
	var idx []int
	for i, r := range rules {
		if !r.HasOutputs() {
			idx = append(idx, i+1)
		}
	}
	if len(idx) == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalEmptyOutput,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d rule(s) set no output attributes", len(idx)),
		Data: map[string]interface{}{
			"count": len(idx),
			"rules": idx,
		},
	}, true
}

// unconstrained flags rules with no input condition at all
func (d *Diagnoser) unconstrained(schema model.Schema, rules []model.MergedRule) (model.Signal, bool) {
	if len(schema.InputColumns) == 0 {
		return model.Signal{}, false
	}

	var idx []int
	for i, r := range rules {
		if len(r.Inputs) == 0 {
			idx = append(idx, i+1)
		}
	}
	if len(idx) == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalUnconstrained,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d rule(s) have no input conditions", len(idx)),
		Data: map[string]interface{}{
			"count": len(idx),
			"rules": idx,
		},
	}, true
}

func (d *Diagnoser) mergedRows(matched int, rules []model.MergedRule) (model.Signal, bool) {
	if matched <= len(rules) {
		return model.Signal{}, false
	}

	largest := 0
	for _, r := range rules {
		if r.MemberCount > largest {
			largest = r.MemberCount
		}
	}
	ratio := float64(matched) / float64(len(rules))

	return model.Signal{
		Type:        model.SignalMergedRows,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d rows consolidated into %d rules (%.2f rows per rule)", matched, len(rules), ratio),
		Data: map[string]interface{}{
			"rows":            matched,
			"rules":           len(rules),
			"ratio":           ratio,
			"largest_members": largest,
			"formula":         "matched_rows / rule_count",
		},
	}, true
}

func (d *Diagnoser) negatedConditions(rules []model.MergedRule) (model.Signal, bool) {
	var idx []int
	values := 0
	for i, r := range rules {
		hit := false
		for _, c := range r.Inputs {
			for _, v := range c.Values {
				if isNegated(v) {
					values++
					hit = true
				}
			}
		}
		if hit {
			idx = append(idx, i+1)
		}
	}
	if len(idx) == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalNegatedConditions,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d rule(s) carry %d negated condition value(s)", len(idx), values),
		Data: map[string]interface{}{
			"rules":  idx,
			"values": values,
		},
	}, true
}

// duplicateRows counts rows that repeat an earlier row cell for cell
func (d *Diagnoser) duplicateRows(matched []model.Row) (model.Signal, bool) {
	seen := make(map[string]bool, len(matched))
	dups := 0
	for _, row := range matched {
		key := strings.Join(row, "\x1f")
		if seen[key] {
			dups++
			continue
		}
		seen[key] = true
	}
	if dups == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalDuplicateRows,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d duplicate row(s) in the matched set", dups),
		Data: map[string]interface{}{
			"duplicates": dups,
			"rows":       len(matched),
		},
	}, true
}

// isNegated matches values rewritten from the negation marker. Normalization
// replaces the marker wherever it appears, so only a leading token is counted.
func isNegated(v string) bool {
	return strings.HasPrefix(v, model.NegationToken)
}
