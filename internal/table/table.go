// Package table provides the in-memory tabular dataset the preprocessing
// pipeline consumes and produces: an ordered set of named columns over
// row-major cells. A nil cell is a null value.
package table

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// Table is a column-ordered, row-major table. Cells are untyped; the
// pipeline stores strings for raw fields and float64 for coerced numerics.
type Table struct {
	cols   []string
	colIdx map[string]int
	rows   [][]any
}

// New creates an empty table with the given column names.
func New(cols ...string) (*Table, error) {
	t := &Table{
		cols:   append([]string(nil), cols...),
		colIdx: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := t.colIdx[c]; dup {
			return nil, eris.Errorf("table: duplicate column %q", c)
		}
		t.colIdx[c] = i
	}
	return t, nil
}

// MustNew is New for statically known column sets (tests, fixtures).
func MustNew(cols ...string) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.rows) == 0 }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// AppendRow adds a row. The cell count must match the column count.
func (t *Table) AppendRow(cells ...any) error {
	if len(cells) != len(t.cols) {
		return eris.Errorf("table: row has %d cells, want %d", len(cells), len(t.cols))
	}
	row := make([]any, len(cells))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return nil
}

// AppendRowMap adds a row from a column→value mapping. Columns absent from
// the map become null; keys not in the table are ignored.
func (t *Table) AppendRowMap(m map[string]any) {
	row := make([]any, len(t.cols))
	for name, idx := range t.colIdx {
		if v, ok := m[name]; ok {
			row[idx] = v
		}
	}
	t.rows = append(t.rows, row)
}

// Value returns the cell at (row, col), or nil if the column is absent.
func (t *Table) Value(row int, col string) any {
	idx, ok := t.colIdx[col]
	if !ok {
		return nil
	}
	return t.rows[row][idx]
}

// SetValue sets the cell at (row, col). Unknown columns are a no-op.
func (t *Table) SetValue(row int, col string, v any) {
	idx, ok := t.colIdx[col]
	if !ok {
		return
	}
	t.rows[row][idx] = v
}

// RenameColumn renames a column in place. Returns false if the old name is
// absent or the new name already exists.
func (t *Table) RenameColumn(oldName, newName string) bool {
	idx, ok := t.colIdx[oldName]
	if !ok {
		return false
	}
	if oldName == newName {
		return true
	}
	if _, exists := t.colIdx[newName]; exists {
		return false
	}
	delete(t.colIdx, oldName)
	t.colIdx[newName] = idx
	t.cols[idx] = newName
	return true
}

// SetColumns replaces all column names, preserving cell data. The new set
// must be the same length and free of duplicates.
func (t *Table) SetColumns(cols []string) error {
	if len(cols) != len(t.cols) {
		return eris.Errorf("table: got %d column names, want %d", len(cols), len(t.cols))
	}
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := idx[c]; dup {
			return eris.Errorf("table: duplicate column %q", c)
		}
		idx[c] = i
	}
	t.cols = append(t.cols[:0], cols...)
	t.colIdx = idx
	return nil
}

// AddColumn appends a column filled with the given value. Adding an
// existing column is a no-op.
func (t *Table) AddColumn(name string, fill any) {
	if t.HasColumn(name) {
		return
	}
	t.colIdx[name] = len(t.cols)
	t.cols = append(t.cols, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
}

// DropColumn removes a column and its cells. Unknown columns are a no-op.
func (t *Table) DropColumn(name string) {
	idx, ok := t.colIdx[name]
	if !ok {
		return
	}
	t.cols = append(t.cols[:idx], t.cols[idx+1:]...)
	delete(t.colIdx, name)
	for c, i := range t.colIdx {
		if i > idx {
			t.colIdx[c] = i - 1
		}
	}
	for i := range t.rows {
		t.rows[i] = append(t.rows[i][:idx], t.rows[i][idx+1:]...)
	}
}

// Slice returns a deep copy of the contiguous row range [start, end).
func (t *Table) Slice(start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end > len(t.rows) {
		end = len(t.rows)
	}
	out := MustNew(t.cols...)
	for _, row := range t.rows[start:end] {
		cells := make([]any, len(row))
		copy(cells, row)
		out.rows = append(out.rows, cells)
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return t.Slice(0, len(t.rows))
}

// Append concatenates another table's rows onto this one. Column names and
// order must match exactly.
func (t *Table) Append(other *Table) error {
	if len(other.cols) != len(t.cols) {
		return eris.Errorf("table: append column count mismatch: %d vs %d", len(other.cols), len(t.cols))
	}
	for i, c := range t.cols {
		if other.cols[i] != c {
			return eris.Errorf("table: append column mismatch at %d: %q vs %q", i, other.cols[i], c)
		}
	}
	for _, row := range other.rows {
		cells := make([]any, len(row))
		copy(cells, row)
		t.rows = append(t.rows, cells)
	}
	return nil
}

// IsNull reports whether a cell value is null.
func IsNull(v any) bool { return v == nil }

// AsString returns the cell as a string. Non-string, non-nil values are
// formatted; nil returns ("", false).
func AsString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	default:
		return fmt.Sprint(v), true
	}
}

// AsFloat returns the cell as a float64 if it holds a numeric value or a
// parseable numeric string.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
