// Package filter narrows a rule table by a primary event selector and an
// AND-combined set of output attribute selectors.
package filter

import (
	"sort"
	"strings"

	"github.com/ppiankov/rulelens/internal/model"
)

// PrimaryOptions returns the All selector followed by the sorted distinct
// values of the pivot column.
func PrimaryOptions(table *model.RuleTable) []string {
	options := []string{model.AllSelector}
	if table == nil {
		return options
	}

	pivot := table.Schema.PivotIndex()
	seen := make(map[string]bool)
	var values []string
	for _, row := range table.Rows {
		v := row[pivot]
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)

	for _, v := range values {
		if v != model.AllSelector {
			options = append(options, v)
		}
	}
	return options
}

// ApplyPrimary keeps rows whose pivot value equals primary exactly.
// The All selector keeps every row; an unknown value keeps none.
func ApplyPrimary(table *model.RuleTable, primary string) []model.Row {
	if table == nil {
		return []model.Row{}
	}
	if primary == model.AllSelector {
		return append([]model.Row{}, table.Rows...)
	}

	pivot := table.Schema.PivotIndex()
	rows := []model.Row{}
	for _, row := range table.Rows {
		if row[pivot] == primary {
			rows = append(rows, row)
		}
	}
	return rows
}

// Candidates returns the sorted distinct output values of rows that can be
// offered as secondary attributes. Blank values and the literal primary
// selector are excluded.
func Candidates(rows []model.Row, schema model.Schema, primary string) []string {
	seen := make(map[string]bool)
	candidates := []string{}

	for _, row := range rows {
		for _, v := range row.Outputs(schema) {
			if seen[v] || strings.TrimSpace(v) == "" || v == primary {
				continue
			}
			seen[v] = true
			candidates = append(candidates, v)
		}
	}

	sort.Strings(candidates)
	return candidates
}

// ApplyAttributes keeps rows in which every attribute is the exact value of at
// least one output column. No attributes keeps every row.
func ApplyAttributes(rows []model.Row, schema model.Schema, attributes []string) []model.Row {
	if len(attributes) == 0 {
		return rows
	}

	kept := []model.Row{}
	for _, row := range rows {
		if hasAll(row.Outputs(schema), attributes) {
			kept = append(kept, row)
		}
	}
	return kept
}

// Apply runs both filter stages for a selection
func Apply(table *model.RuleTable, sel model.Selection) []model.Row {
	rows := ApplyPrimary(table, sel.Primary)
	if table == nil {
		return rows
	}
	return ApplyAttributes(rows, table.Schema, sel.Attributes)
}

func hasAll(outputs []string, attributes []string) bool {
	for _, attr := range attributes {
		found := false
		for _, v := range outputs {
			if v == attr {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
