package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrants/triagency-cli/internal/table"
)

func TestProcessAmendments_Consolidates(t *testing.T) {
	tbl := table.MustNew("ref_number", "amendment_number", "agreement_value", "recipient_legal_name")
	require.NoError(t, tbl.AppendRow("REF1", 0.0, 100.0, "University A"))
	require.NoError(t, tbl.AppendRow("REF1", 1.0, 150.0, "University A"))
	require.NoError(t, tbl.AppendRow("REF2", 0.0, 50.0, "University B"))

	rep := NewReport()
	out, err := (&ProcessAmendments{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	require.Equal(t, 2, out.NumRows())
	assert.False(t, out.HasColumn("amendment_number"))
	require.True(t, out.HasColumn("latest_amendment_number"))
	require.True(t, out.HasColumn("amendments_history"))

	// highest amendment survives
	assert.Equal(t, 1.0, out.Value(0, "latest_amendment_number"))
	assert.Equal(t, 150.0, out.Value(0, "agreement_value"))
	assert.Equal(t,
		`[{"agreement_value":100,"amendment_number":0}]`,
		out.Value(0, "amendments_history"),
	)

	// single-amendment grants get a null history
	assert.Equal(t, 0.0, out.Value(1, "latest_amendment_number"))
	assert.Nil(t, out.Value(1, "amendments_history"))

	assert.Equal(t, 1, rep.Fix(FixInconsistenciesResolved, "amendments"))
}

func TestProcessAmendments_DiscriminatorsSplitSharedRefNumbers(t *testing.T) {
	tbl := table.MustNew("ref_number", "amendment_number", "recipient_legal_name")
	require.NoError(t, tbl.AppendRow("REF1", 0.0, "University A"))
	require.NoError(t, tbl.AppendRow("REF1", 0.0, "University B"))

	out, err := (&ProcessAmendments{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)

	// same ref_number, different recipients: two distinct grants
	assert.Equal(t, 2, out.NumRows())
}

func TestProcessAmendments_TieKeepsEarliestRow(t *testing.T) {
	tbl := table.MustNew("ref_number", "amendment_number", "agreement_value")
	require.NoError(t, tbl.AppendRow("REF1", 2.0, 111.0))
	require.NoError(t, tbl.AppendRow("REF1", 2.0, 222.0))

	out, err := (&ProcessAmendments{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)

	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, 111.0, out.Value(0, "agreement_value"))
}

func TestProcessAmendments_CoercesStringAmendmentNumbers(t *testing.T) {
	tbl := table.MustNew("ref_number", "amendment_number")
	require.NoError(t, tbl.AppendRow("REF1", "0"))
	require.NoError(t, tbl.AppendRow("REF1", "2"))
	require.NoError(t, tbl.AppendRow("REF1", nil))

	out, err := (&ProcessAmendments{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)

	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, 2.0, out.Value(0, "latest_amendment_number"))
}

func TestProcessAmendments_RowCountLaw(t *testing.T) {
	tbl := table.MustNew("ref_number", "amendment_number")
	groups := map[string]int{"A": 3, "B": 1, "C": 2}
	for ref, n := range groups {
		for i := 0; i < n; i++ {
			require.NoError(t, tbl.AppendRow(ref, float64(i)))
		}
	}

	out, err := (&ProcessAmendments{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)
	assert.Equal(t, len(groups), out.NumRows())
}

func TestProcessAmendments_MissingColumns_NoOp(t *testing.T) {
	tbl := table.MustNew("ref_number")
	require.NoError(t, tbl.AppendRow("REF1"))

	out, err := (&ProcessAmendments{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)
	assert.Same(t, tbl, out)
}

func TestProcessAmendments_ErrorReturnsInputUnchanged(t *testing.T) {
	tbl := table.MustNew("ref_number", "amendment_number", "agreement_value")
	// a channel cannot be encoded to JSON, so building the history of the
	// superseded row fails
	require.NoError(t, tbl.AppendRow("REF1", 0.0, make(chan int)))
	require.NoError(t, tbl.AppendRow("REF1", 1.0, 150.0))

	out, err := (&ProcessAmendments{}).Apply(tbl, NewReport(), Params{})
	require.Error(t, err)
	assert.Same(t, tbl, out)
	assert.Equal(t, 2, out.NumRows())
}
