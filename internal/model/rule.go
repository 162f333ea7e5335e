package model

import (
	"sort"
	"strings"
)

// AllSelector is the primary selector value that matches every row
const AllSelector = "All"

// BlankLabel is how a blank pivot value is listed and typed on the command line
const BlankLabel = `""`

// Field is one output column and its shared value
type Field struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Condition is one input column and the distinct values contributed by member rows
type Condition struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// MergedRule summarizes every row that shares one exact output tuple
type MergedRule struct {
	OutputKey   []string    `json:"output_key"`
	Outputs     []Field     `json:"outputs"`
	Inputs      []Condition `json:"inputs"`
	MemberCount int         `json:"member_count"`
}

// HasOutputs reports whether any output attribute is displayable
func (r MergedRule) HasOutputs() bool {
	return len(r.Outputs) > 0
}

// Output returns the shared value of an output column
func (r MergedRule) Output(column string) (string, bool) {
	for _, f := range r.Outputs {
		if f.Column == column {
			return f.Value, true
		}
	}
	return "", false
}

// Input returns the merged values of an input column
func (r MergedRule) Input(column string) ([]string, bool) {
	for _, c := range r.Inputs {
		if c.Column == column {
			return c.Values, true
		}
	}
	return nil, false
}

// Selection is the filter state supplied by the presentation layer
type Selection struct {
	Primary    string   `json:"primary"`
	Attributes []string `json:"attributes,omitempty"`
}

// NewSelection returns a selection for primary. A blank primary is a real
// pivot value and matches only blank-event rows; every row needs AllSelector.
func NewSelection(primary string, attributes ...string) Selection {
	return Selection{Primary: primary, Attributes: attributes}
}

// ParsePrimary maps user input to a primary value, turning BlankLabel into ""
func ParsePrimary(s string) string {
	if s == BlankLabel {
		return ""
	}
	return s
}

// PrimaryLabel is the inverse of ParsePrimary
func PrimaryLabel(primary string) string {
	if primary == "" {
		return BlankLabel
	}
	return primary
}

// IsAll reports whether the primary selector matches every row
func (s Selection) IsAll() bool {
	return s.Primary == AllSelector
}

// Normalized returns a copy with attributes deduplicated and sorted
func (s Selection) Normalized() Selection {
	if len(s.Attributes) == 0 {
		return Selection{Primary: s.Primary}
	}

	seen := make(map[string]bool, len(s.Attributes))
	attrs := make([]string, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		if !seen[a] {
			seen[a] = true
			attrs = append(attrs, a)
		}
	}
	sort.Strings(attrs)

	return Selection{Primary: s.Primary, Attributes: attrs}
}

// Key returns a value-based identity for the selection.
// Logically equal selections produce the same key regardless of attribute order.
func (s Selection) Key() string {
	n := s.Normalized()
	var b strings.Builder
	b.WriteString(n.Primary)
	for _, a := range n.Attributes {
		b.WriteByte(0x1f)
		b.WriteString(a)
	}
	return b.String()
}
