// Package group consolidates rows with identical output tuples into merged rules.
package group

import (
	"slices"
	"sort"
	"strings"

	"github.com/ppiankov/rulelens/internal/model"
)

// Group folds rows into one MergedRule per distinct output tuple.
// Rules are ordered by their output tuple, compared component by component,
// so the result does not depend on row order.
func Group(rows []model.Row, schema model.Schema) []model.MergedRule {
	type bucket struct {
		key  []string
		rows []model.Row
	}

	buckets := make(map[string]*bucket)
	for _, row := range rows {
		outputs := row.Outputs(schema)
		id := tupleID(outputs)
		b, ok := buckets[id]
		if !ok {
			b = &bucket{key: append([]string(nil), outputs...)}
			buckets[id] = b
		}
		b.rows = append(b.rows, row)
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return slices.Compare(ordered[i].key, ordered[j].key) < 0
	})

	rules := make([]model.MergedRule, 0, len(ordered))
	for _, b := range ordered {
		rules = append(rules, model.MergedRule{
			OutputKey:   b.key,
			Outputs:     outputFields(schema, b.key),
			Inputs:      inputConditions(schema, b.rows),
			MemberCount: len(b.rows),
		})
	}
	return rules
}

// tupleID encodes a tuple unambiguously, so ("a", "") and ("", "a") differ
// and an all-empty tuple is a key like any other.
func tupleID(values []string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strings.ReplaceAll(v, "\\", "\\\\"))
		b.WriteString("\\|")
	}
	return b.String()
}

func outputFields(schema model.Schema, key []string) []model.Field {
	fields := []model.Field{}
	for i, col := range schema.OutputColumns {
		if strings.TrimSpace(key[i]) == "" {
			continue
		}
		fields = append(fields, model.Field{Column: col, Value: key[i]})
	}
	return fields
}

func inputConditions(schema model.Schema, rows []model.Row) []model.Condition {
	conditions := []model.Condition{}
	for i, col := range schema.InputColumns {
		seen := make(map[string]bool)
		var values []string
		for _, row := range rows {
			v := row[i]
			if seen[v] || !displayable(v) {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}
		sort.Strings(values)
		conditions = append(conditions, model.Condition{Column: col, Values: values})
	}
	return conditions
}

// displayable reports whether an input value says anything on its own.
// A bare NOT token is a negation of nothing.
func displayable(v string) bool {
	t := strings.TrimSpace(v)
	return t != "" && t != model.NegationToken
}
