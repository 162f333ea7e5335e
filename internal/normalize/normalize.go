// Package normalize turns a raw table into a canonical, immutable rule table.
package normalize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
)

var (
	// ErrPivotNotFound is returned when the pivot column is missing from the header
	ErrPivotNotFound = errors.New("pivot column not found")
	// ErrDuplicateColumn is returned when two columns share a name after trimming
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// SchemaError reports an unrecoverable problem with the table header
type SchemaError struct {
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %v: %q", e.Err, e.Column)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Options controls normalization
type Options struct {
	Source      string   // Description of where the raw table came from
	Pivot       string   // Name of the first output column
	DropColumns []string // Optional columns silently removed when present
}

// Normalize produces a RuleTable from raw. raw is not modified.
func Normalize(ctx context.Context, raw model.RawTable, opts Options) (*model.RuleTable, error) {
	logger := log.WithContext(ctx)

	drop := make(map[string]bool, len(opts.DropColumns))
	for _, c := range opts.DropColumns {
		drop[strings.TrimSpace(c)] = true
	}

	// Trim names once and remember which raw positions survive
	var (
		columns []string
		keep    []int
		seen    = make(map[string]bool, len(raw.Header))
	)
	for i, name := range raw.Header {
		name = strings.TrimSpace(name)
		if drop[name] {
			logger.Debug("dropping optional column", "column", name)
			continue
		}
		if seen[name] {
			return nil, &SchemaError{Column: name, Err: ErrDuplicateColumn}
		}
		seen[name] = true
		columns = append(columns, name)
		keep = append(keep, i)
	}

	pivotIndex := -1
	for i, name := range columns {
		if name == opts.Pivot {
			pivotIndex = i
			break
		}
	}
	if pivotIndex < 0 {
		return nil, &SchemaError{Column: opts.Pivot, Err: ErrPivotNotFound}
	}

	schema := model.NewSchema(columns, pivotIndex)

	rows := make([]model.Row, 0, len(raw.Records))
	for n, rec := range raw.Records {
		if len(rec) > len(raw.Header) {
			logger.Debug("discarding cells beyond header", "record", n+1, "extra", len(rec)-len(raw.Header))
		}

		row := make(model.Row, len(columns))
		for i, src := range keep {
			if src < len(rec) {
				row[i] = rec[src]
			}
		}
		for i := 0; i < pivotIndex; i++ {
			row[i] = Value(row[i])
		}
		rows = append(rows, row)
	}

	return &model.RuleTable{
		Source:      opts.Source,
		Schema:      schema,
		Rows:        rows,
		Fingerprint: fingerprint(schema, rows),
	}, nil
}

// Value rewrites every negation marker in an input cell to the NOT token.
// Applying it to an already-normalized value is a no-op.
func Value(v string) string {
	return strings.ReplaceAll(v, model.NegationMarker, model.NegationToken)
}

// fingerprint hashes the normalized header and cells so that equal tables
// share memoized views and a reload with new content never does.
func fingerprint(schema model.Schema, rows []model.Row) string {
	h := sha256.New()
	for _, c := range schema.Columns {
		_, _ = h.Write([]byte(c))
		_, _ = h.Write([]byte{0x1f})
	}
	_, _ = h.Write([]byte(schema.Pivot))
	_, _ = h.Write([]byte{0x1e})
	for _, row := range rows {
		for _, v := range row {
			_, _ = h.Write([]byte(v))
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
