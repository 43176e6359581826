package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrants/triagency-cli/internal/table"
)

func TestCleanResearchOrganizationNames(t *testing.T) {
	tbl := table.MustNew("research_organization_name")
	require.NoError(t, tbl.AppendRow("University of Ottawa|Université d'Ottawa"))
	require.NoError(t, tbl.AppendRow("McGill University  /  Université McGill"))
	require.NoError(t, tbl.AppendRow("Plain Name"))
	require.NoError(t, tbl.AppendRow(nil))

	rep := NewReport()
	out, err := (&CleanResearchOrganizationNames{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "University of Ottawa | Université d'Ottawa", out.Value(0, "research_organization_name"))
	assert.Equal(t, "McGill University / Université McGill", out.Value(1, "research_organization_name"))
	assert.Equal(t, "Plain Name", out.Value(2, "research_organization_name"))
	assert.Nil(t, out.Value(3, "research_organization_name"))

	assert.Equal(t, 2, rep.Issue(IssueInvalidFormats, "research_organization_name"))
	assert.Equal(t, 2, rep.Fix(FixFormatsCorrected, "research_organization_name"))
}

func TestCleanResearchOrganizationNames_MissingColumn(t *testing.T) {
	tbl := table.MustNew("ref_number")
	require.NoError(t, tbl.AppendRow("REF001"))

	out, err := (&CleanResearchOrganizationNames{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)
	assert.Same(t, tbl, out)
}
