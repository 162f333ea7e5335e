package model

// NegationMarker is the raw negation character used in input condition cells
const NegationMarker = "~"

// NegationToken replaces NegationMarker in input columns after normalization
const NegationToken = "NOT"

// Schema is the column layout of a rule table, split at the pivot column
type Schema struct {
	Columns       []string `json:"columns"`
	Pivot         string   `json:"pivot"`
	InputColumns  []string `json:"input_columns"`  // Columns strictly before the pivot
	OutputColumns []string `json:"output_columns"` // The pivot and everything after it

	index map[string]int
}

// NewSchema builds a schema from already-validated column names.
// pivotIndex must be a valid index into columns.
func NewSchema(columns []string, pivotIndex int) Schema {
	cols := append([]string(nil), columns...)

	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}

	return Schema{
		Columns:       cols,
		Pivot:         cols[pivotIndex],
		InputColumns:  cols[:pivotIndex:pivotIndex],
		OutputColumns: cols[pivotIndex:],
		index:         index,
	}
}

// Index returns the position of a column, or -1 if the schema has no such column
func (s Schema) Index(column string) int {
	if s.index == nil {
		for i, c := range s.Columns {
			if c == column {
				return i
			}
		}
		return -1
	}
	if i, ok := s.index[column]; ok {
		return i
	}
	return -1
}

// PivotIndex returns the position of the pivot column
func (s Schema) PivotIndex() int {
	return len(s.InputColumns)
}

// Row holds one value per schema column, in schema order.
// Missing data is always the empty string.
type Row []string

// Value returns the value of the named column, or "" for unknown columns
func (r Row) Value(s Schema, column string) string {
	i := s.Index(column)
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Outputs returns the output tuple of the row in output-column order
func (r Row) Outputs(s Schema) []string {
	return r[s.PivotIndex():]
}

// Inputs returns the input values of the row in input-column order
func (r Row) Inputs(s Schema) []string {
	return r[:s.PivotIndex()]
}

// RawTable is a header plus records exactly as read from the source artifact
type RawTable struct {
	Header  []string
	Records [][]string
}

// RuleTable is the normalized, immutable rule set.
// Filtering and grouping derive new slices and never modify Rows.
type RuleTable struct {
	Source      string `json:"source"`
	Schema      Schema `json:"schema"`
	Rows        []Row  `json:"-"`
	Fingerprint string `json:"fingerprint"` // sha256 over header and cells
}

// Len returns the number of rows in the table
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
