package table

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_EmptyFieldsBecomeNull(t *testing.T) {
	in := "ref_number,agreement_value\nREF001,100\nREF002,\n"

	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"ref_number", "agreement_value"}, tbl.Columns())
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "100", tbl.Value(0, "agreement_value"))
	assert.Nil(t, tbl.Value(1, "agreement_value"))
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	tbl := MustNew("a", "b", "c")
	require.NoError(t, tbl.AppendRow("text, with comma", nil, 2019.0))

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), back.Columns())
	assert.Equal(t, "text, with comma", back.Value(0, "a"))
	assert.Nil(t, back.Value(0, "b"))
	// numbers come back as strings
	assert.Equal(t, "2019", back.Value(0, "c"))
}

func TestWriteFile_Gzip(t *testing.T) {
	tbl := MustNew("a")
	require.NoError(t, tbl.AppendRow("compressed"))

	path := filepath.Join(t.TempDir(), "out.csv.gz")
	require.NoError(t, tbl.WriteFile(path))

	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "compressed", back.Value(0, "a"))
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
