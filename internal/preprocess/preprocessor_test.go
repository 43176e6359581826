package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrants/triagency-cli/internal/table"
)

func TestPreprocessor_Run(t *testing.T) {
	pp := NewPreprocessor(0, 1)

	raw := table.MustNew("Ref Number", "Amendment Number", "owner_org", "agreement_value")
	require.NoError(t, raw.AppendRow("REF1", "0", "cihr-irsc", "1000"))
	require.NoError(t, raw.AppendRow("REF1", "1", "cihr-irsc", "2000"))

	out, rep, err := pp.Run(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, 1, out.NumRows())
	assert.Equal(t, "CIHR", out.Value(0, "org"))
	assert.Equal(t, 1.0, out.Value(0, "latest_amendment_number"))
	assert.Equal(t, 2000.0, out.Value(0, "agreement_value"))
	assert.Equal(t, 2, rep.Summarize().InitialRows)
	assert.Equal(t, 1, rep.Summarize().FinalRows)
}

func TestPreprocessor_Run_SecondPassIsStable(t *testing.T) {
	pp := NewPreprocessor(0, 1)

	raw := table.MustNew("Ref Number", "Amendment Number", "owner_org", "recipient_city", "agreement_start_date")
	require.NoError(t, raw.AppendRow("REF1", "0", "nserc-crsng", "TORONTO", "2019-04-01"))
	require.NoError(t, raw.AppendRow("REF2", "0", "sshrc-crsh", "montreal", "2020-09-01"))

	once, _, err := pp.Run(context.Background(), raw)
	require.NoError(t, err)

	twice, _, err := NewPreprocessor(0, 1).Run(context.Background(), once)
	require.NoError(t, err)

	assertTablesEqual(t, once, twice)
}

func TestPreprocessor_Save(t *testing.T) {
	pp := NewPreprocessor(0, 1)
	dir := t.TempDir()

	tbl := table.MustNew("ref_number")
	require.NoError(t, tbl.AppendRow("REF1"))

	path, err := pp.Save(tbl, dir, "", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "data_"))
	assert.True(t, strings.HasSuffix(path, ".csv"))
	_, err = os.Stat(path)
	assert.NoError(t, err)

	gzPath, err := pp.Save(tbl, dir, "out.csv", true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gzPath, "out.csv.gz"))

	back, err := table.ReadFile(gzPath)
	require.NoError(t, err)
	assert.Equal(t, "REF1", back.Value(0, "ref_number"))
}

func TestPreprocessor_Save_EmptyTable(t *testing.T) {
	pp := NewPreprocessor(0, 1)

	_, err := pp.Save(table.MustNew("a"), t.TempDir(), "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty table")
}
