package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DuplicateColumn(t *testing.T) {
	_, err := New("a", "b", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestAppendRow_ArityMismatch(t *testing.T) {
	tbl := MustNew("a", "b")
	err := tbl.AppendRow("only one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 cells, want 2")
}

func TestValue_And_SetValue(t *testing.T) {
	tbl := MustNew("a", "b")
	require.NoError(t, tbl.AppendRow("x", nil))

	assert.Equal(t, "x", tbl.Value(0, "a"))
	assert.Nil(t, tbl.Value(0, "b"))
	assert.Nil(t, tbl.Value(0, "no_such_column"))

	tbl.SetValue(0, "b", 3.5)
	assert.Equal(t, 3.5, tbl.Value(0, "b"))

	// unknown column is a no-op
	tbl.SetValue(0, "no_such_column", "ignored")
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
}

func TestAppendRowMap(t *testing.T) {
	tbl := MustNew("a", "b")
	tbl.AppendRowMap(map[string]any{"a": "1", "ignored": "x"})

	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, "1", tbl.Value(0, "a"))
	assert.Nil(t, tbl.Value(0, "b"))
}

func TestRenameColumn(t *testing.T) {
	tbl := MustNew("a", "b")
	require.NoError(t, tbl.AppendRow("x", "y"))

	assert.True(t, tbl.RenameColumn("a", "z"))
	assert.Equal(t, []string{"z", "b"}, tbl.Columns())
	assert.Equal(t, "x", tbl.Value(0, "z"))

	assert.False(t, tbl.RenameColumn("missing", "w"))
	assert.False(t, tbl.RenameColumn("z", "b"))
	assert.True(t, tbl.RenameColumn("b", "b"))
}

func TestAddColumn_And_DropColumn(t *testing.T) {
	tbl := MustNew("a")
	require.NoError(t, tbl.AppendRow("x"))

	tbl.AddColumn("b", 0.0)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	assert.Equal(t, 0.0, tbl.Value(0, "b"))

	tbl.DropColumn("a")
	assert.Equal(t, []string{"b"}, tbl.Columns())
	assert.Equal(t, 0.0, tbl.Value(0, "b"))

	// dropping an unknown column is a no-op
	tbl.DropColumn("missing")
	assert.Equal(t, []string{"b"}, tbl.Columns())
}

func TestSlice_IsDeepCopy(t *testing.T) {
	tbl := MustNew("a")
	require.NoError(t, tbl.AppendRow("r0"))
	require.NoError(t, tbl.AppendRow("r1"))
	require.NoError(t, tbl.AppendRow("r2"))

	s := tbl.Slice(1, 3)
	assert.Equal(t, 2, s.NumRows())
	assert.Equal(t, "r1", s.Value(0, "a"))

	s.SetValue(0, "a", "mutated")
	assert.Equal(t, "r1", tbl.Value(1, "a"))
}

func TestAppend_ColumnMismatch(t *testing.T) {
	a := MustNew("x", "y")
	b := MustNew("x", "z")
	require.NoError(t, b.AppendRow("1", "2"))

	assert.Error(t, a.Append(b))

	c := MustNew("x", "y")
	require.NoError(t, c.AppendRow("1", "2"))
	require.NoError(t, a.Append(c))
	assert.Equal(t, 1, a.NumRows())
}

func TestAsString(t *testing.T) {
	s, ok := AsString("hello")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok = AsString(2019.0)
	assert.True(t, ok)
	assert.Equal(t, "2019", s)

	s, ok = AsString(1234.5)
	assert.True(t, ok)
	assert.Equal(t, "1234.5", s)

	_, ok = AsString(nil)
	assert.False(t, ok)
}

func TestAsFloat(t *testing.T) {
	f, ok := AsFloat(12.5)
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	f, ok = AsFloat("42")
	assert.True(t, ok)
	assert.Equal(t, 42.0, f)

	_, ok = AsFloat("not a number")
	assert.False(t, ok)

	_, ok = AsFloat(nil)
	assert.False(t, ok)
}
