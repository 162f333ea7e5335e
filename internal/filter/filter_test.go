package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/rulelens/internal/model"
	"github.com/ppiankov/rulelens/internal/normalize"
)

func fixture(t *testing.T) *model.RuleTable {
	t.Helper()

	raw := model.RawTable{
		Header: []string{"Channel", "WY event", "Attr1", "Attr2"},
		Records: [][]string{
			{"web", "Click", "Y", ""},
			{"app", "Click", "Z", "Y"},
			{"tv", "View", "Z", ""},
			{"web", "View", "View", "Y"},
			{"app", "", "", ""},
			{"tv", "Click", " ", "W"},
		},
	}
	table, err := normalize.Normalize(context.Background(), raw, normalize.Options{Pivot: "WY event"})
	require.NoError(t, err)
	return table
}

func TestPrimaryOptions(t *testing.T) {
	table := fixture(t)
	assert.Equal(t, []string{model.AllSelector, "", "Click", "View"}, PrimaryOptions(table))
	assert.Equal(t, []string{model.AllSelector}, PrimaryOptions(nil))
}

func TestPrimaryOptions_DataValueAllNotDuplicated(t *testing.T) {
	table, err := normalize.Normalize(context.Background(), model.RawTable{
		Header:  []string{"Event"},
		Records: [][]string{{"All"}, {"B"}},
	}, normalize.Options{Pivot: "Event"})
	require.NoError(t, err)

	assert.Equal(t, []string{model.AllSelector, "B"}, PrimaryOptions(table))
}

func TestApplyPrimary(t *testing.T) {
	table := fixture(t)

	tests := []struct {
		name    string
		primary string
		want    int
	}{
		{"all", model.AllSelector, 6},
		{"click", "Click", 3},
		{"view", "View", 2},
		{"empty value", "", 1},
		{"unknown", "Nope", 0},
		{"case sensitive", "click", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := ApplyPrimary(table, tt.primary)
			assert.NotNil(t, rows)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestApplyPrimary_AllIsNoOp(t *testing.T) {
	table := fixture(t)
	assert.Equal(t, table.Rows, ApplyPrimary(table, model.AllSelector))
	assert.Equal(t, table.Rows, Apply(table, model.Selection{Primary: model.AllSelector}))
}

func TestCandidates(t *testing.T) {
	table := fixture(t)

	all := ApplyPrimary(table, model.AllSelector)
	assert.Equal(t, []string{"Click", "View", "W", "Y", "Z"}, Candidates(all, table.Schema, model.AllSelector))

	click := ApplyPrimary(table, "Click")
	assert.Equal(t, []string{"W", "Y", "Z"}, Candidates(click, table.Schema, "Click"),
		"primary value and blanks excluded")

	view := ApplyPrimary(table, "View")
	assert.Equal(t, []string{"Y", "Z"}, Candidates(view, table.Schema, "View"),
		"literal primary value excluded even when it appears in another output column")

	assert.Empty(t, Candidates(nil, table.Schema, "View"))
}

func TestApplyAttributes_AndAcrossAttributesOrAcrossColumns(t *testing.T) {
	table := fixture(t)
	rows := ApplyPrimary(table, model.AllSelector)

	// Y appears in Attr1 of row 0 and Attr2 of rows 1 and 3
	assert.Len(t, ApplyAttributes(rows, table.Schema, []string{"Y"}), 3)

	// Only row 1 carries both
	both := ApplyAttributes(rows, table.Schema, []string{"Y", "Z"})
	require.Len(t, both, 1)
	assert.Equal(t, "app", both[0][0])

	// Pivot column takes part as an output column
	assert.Len(t, ApplyAttributes(rows, table.Schema, []string{"View", "Z"}), 1)

	assert.Empty(t, ApplyAttributes(rows, table.Schema, []string{"W", "Z"}))
}

func TestApplyAttributes_NoMatchingRowHasBoth(t *testing.T) {
	table, err := normalize.Normalize(context.Background(), model.RawTable{
		Header: []string{"In", "Event", "A"},
		Records: [][]string{
			{"1", "E", "Y"},
			{"2", "E", "Z"},
		},
	}, normalize.Options{Pivot: "Event"})
	require.NoError(t, err)

	rows := Apply(table, model.Selection{Primary: model.AllSelector, Attributes: []string{"Y", "Z"}})
	assert.Empty(t, rows)
}

func TestApplyAttributes_Monotonic(t *testing.T) {
	table := fixture(t)
	base := ApplyPrimary(table, "Click")

	attrs := []string{}
	prev := len(base)
	for _, a := range []string{"Y", "Z", "W"} {
		attrs = append(attrs, a)
		got := len(ApplyAttributes(base, table.Schema, attrs))
		assert.LessOrEqual(t, got, prev, "adding %q grew the result", a)
		prev = got
	}
}

func TestApply_DoesNotMutateTable(t *testing.T) {
	table := fixture(t)
	before := append([]model.Row(nil), table.Rows...)

	rows := Apply(table, model.Selection{Primary: model.AllSelector})
	rows[0] = model.Row{"changed"}

	assert.Equal(t, before, table.Rows)
}
