// Package dataset provides the column-addressable tabular boundary the
// pipeline reads from and commits back into: an ordered header plus
// string-typed rows, with CSV and XLSX readers and a CSV writer. Cells are
// always strings; committing values never coerces column types.
package dataset

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMissingColumns is the schema error raised before any row processing
// when the input lacks required columns.
var ErrMissingColumns = eris.New("dataset: missing required columns")

// Table is an ordered, column-addressable set of string rows.
type Table struct {
	columns []string
	colIdx  map[string]int
	rows    [][]string
}

// New builds a table from a header and rows. Short rows are padded so every
// row has one cell per column.
func New(columns []string, rows [][]string) *Table {
	idx := make(map[string]int, len(columns))
	cols := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = strings.TrimSpace(col)
		idx[cols[i]] = i
	}
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) < len(cols) {
			p := make([]string, len(cols))
			copy(p, row)
			row = p
		}
		padded[i] = row
	}
	return &Table{columns: cols, colIdx: idx, rows: padded}
}

// Columns returns the header in original order.
func (t *Table) Columns() []string { return t.columns }

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.rows) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.colIdx[column]
	return ok
}

// Get returns the cell at (row, column), or empty for an unknown column.
func (t *Table) Get(row int, column string) string {
	i, ok := t.colIdx[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	return t.rows[row][i]
}

// Set writes the cell at (row, column). Unknown columns are ignored so
// callers can commit partial records against narrower datasets.
func (t *Table) Set(row int, column, value string) {
	i, ok := t.colIdx[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return
	}
	t.rows[row][i] = value
}

// Truncate drops all rows beyond the first n. A non-positive n is a no-op.
func (t *Table) Truncate(n int) {
	if n > 0 && n < len(t.rows) {
		t.rows = t.rows[:n]
	}
}

// Row returns a copy of the row's cells in column order.
func (t *Table) Row(row int) []string {
	out := make([]string, len(t.columns))
	copy(out, t.rows[row])
	return out
}

// Require validates that every named column is present, returning a wrapped
// ErrMissingColumns naming the absentees otherwise.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, col := range columns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrMissingColumns, "%s", strings.Join(missing, ", "))
	}
	return nil
}
