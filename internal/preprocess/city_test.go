package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrants/triagency-cli/internal/table"
)

func TestStandardizeCityNames(t *testing.T) {
	tbl := table.MustNew("recipient_city")
	for _, city := range []string{
		"TORONTO",
		"st. john's",
		"notre-dame",
		"l'anse-au-loup",
		"Montreal",
	} {
		require.NoError(t, tbl.AppendRow(city))
	}
	require.NoError(t, tbl.AppendRow(nil))

	rep := NewReport()
	out, err := (&StandardizeCityNames{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "Toronto", out.Value(0, "recipient_city"))
	assert.Equal(t, "St. John's", out.Value(1, "recipient_city"))
	assert.Equal(t, "Notre-Dame", out.Value(2, "recipient_city"))
	assert.Equal(t, "L'Anse-Au-Loup", out.Value(3, "recipient_city"))
	assert.Equal(t, "Montreal", out.Value(4, "recipient_city"))
	assert.Nil(t, out.Value(5, "recipient_city"))

	// every non-null value except "Montreal" deviates from the standard shape
	assert.Equal(t, 4, rep.Issue(IssueInconsistencies, "recipient_city"))
	assert.Equal(t, 4, rep.Fix(FixInconsistenciesResolved, "recipient_city"))
}

func TestStandardizeCityNames_MissingColumn(t *testing.T) {
	tbl := table.MustNew("ref_number")
	require.NoError(t, tbl.AppendRow("REF001"))

	out, err := (&StandardizeCityNames{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)
	assert.Same(t, tbl, out)
}

func TestFixCityCasing(t *testing.T) {
	cases := map[string]string{
		"St. John's":       "St. John's",
		"L'anse":           "L'Anse",
		"Val-D'or":         "Val-D'Or",
		"Notre-dame":       "Notre-Dame",
		"Baie-Sainte-anne": "Baie-Sainte-Anne",
	}
	for in, want := range cases {
		assert.Equal(t, want, fixCityCasing(in), "input %q", in)
	}
}
