package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrants/triagency-cli/internal/table"
)

const fixKey = "recipient_legal_name/research_organization_name"

func newFixOrgsTable(t *testing.T, rows ...[3]any) *table.Table {
	t.Helper()
	tbl := table.MustNew("recipient_legal_name", "research_organization_name", "recipient_city")
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r[0], r[1], r[2]))
	}
	return tbl
}

func TestFixResearchOrganizations_ComplexParentheses(t *testing.T) {
	tbl := newFixOrgsTable(t,
		[3]any{"Smith, John (Dept of Biology) (University of Toronto)", nil, nil},
	)

	rep := NewReport()
	out, err := (&FixResearchOrganizations{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "Smith, John", out.Value(0, "recipient_legal_name"))
	assert.Equal(t, "University of Toronto", out.Value(0, "research_organization_name"))
	assert.Equal(t, 1, rep.Fix("complex_parentheses", fixKey))
}

func TestFixResearchOrganizations_SingleParenDisambiguation(t *testing.T) {
	tbl := newFixOrgsTable(t,
		// comma inside, keyword before: the organization comes first
		[3]any{"University of Guelph (Smith, Jane)", nil, nil},
		// comma before, no keyword inside: the person comes first
		[3]any{"Doe, Alex (Freelance)", nil, nil},
	)

	rep := NewReport()
	out, err := (&FixResearchOrganizations{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "Smith, Jane", out.Value(0, "recipient_legal_name"))
	assert.Equal(t, "University of Guelph", out.Value(0, "research_organization_name"))
	assert.Equal(t, "Doe, Alex", out.Value(1, "recipient_legal_name"))
	assert.Equal(t, "Freelance", out.Value(1, "research_organization_name"))
	assert.Equal(t, 2, rep.Fix("recipient_parentheses", fixKey))
}

func TestFixResearchOrganizations_BilingualDelimiters(t *testing.T) {
	tbl := newFixOrgsTable(t,
		[3]any{"Smith, A", "University of Ottawa | Université d'Ottawa", "Saint John | Saint-Jean"},
		[3]any{"Lee, B", "McGill University - Université McGill", nil},
	)

	rep := NewReport()
	out, err := (&FixResearchOrganizations{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "University of Ottawa", out.Value(0, "research_organization_name"))
	assert.Equal(t, "Saint-Jean", out.Value(0, "recipient_city"))
	assert.Equal(t, "McGill University", out.Value(1, "research_organization_name"))

	assert.Equal(t, 1, rep.Fix("research_org_pipe", fixKey))
	assert.Equal(t, 1, rep.Fix("city_pipe", fixKey))
	assert.Equal(t, 1, rep.Fix("research_org_dash", fixKey))
}

func TestFixResearchOrganizations_UnbalancedParentheses(t *testing.T) {
	tbl := newFixOrgsTable(t,
		[3]any{"Acme Research) stray tail", "Beta Institute", nil},
	)

	rep := NewReport()
	out, err := (&FixResearchOrganizations{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "Acme Research", out.Value(0, "recipient_legal_name"))
	assert.Equal(t, 1, rep.Fix("unbalanced_parentheses", fixKey))
}

func TestFixResearchOrganizations_TrailingPunctuation(t *testing.T) {
	tbl := newFixOrgsTable(t,
		[3]any{"Smith, C.", "University of Manitoba.;", nil},
	)

	out, err := (&FixResearchOrganizations{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)

	assert.Equal(t, "Smith, C", out.Value(0, "recipient_legal_name"))
	assert.Equal(t, "University of Manitoba", out.Value(0, "research_organization_name"))
}

func TestFixResearchOrganizations_BackfillFromInstitution(t *testing.T) {
	tbl := newFixOrgsTable(t,
		[3]any{"University of Waterloo", nil, nil},
		[3]any{"Jane Smith", nil, nil},
	)

	rep := NewReport()
	out, err := (&FixResearchOrganizations{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "University of Waterloo", out.Value(0, "research_organization_name"))
	assert.Nil(t, out.Value(1, "research_organization_name"))
	assert.Equal(t, 2, rep.Issue(IssueMissingValues, "research_organization_name"))
	assert.Equal(t, 1, rep.Fix(FixMissingValuesFilled, "research_organization_name"))
}

func TestFixResearchOrganizations_LeadingThe(t *testing.T) {
	tbl := newFixOrgsTable(t,
		[3]any{"Smith, D", "The Hospital for Sick Children", nil},
	)

	rep := NewReport()
	out, err := (&FixResearchOrganizations{}).Apply(tbl, rep, Params{})
	require.NoError(t, err)

	assert.Equal(t, "Hospital for Sick Children", out.Value(0, "research_organization_name"))
	assert.Equal(t, 1, rep.Fix("unneeded_the", fixKey))
}

func TestFixResearchOrganizations_MissingColumns(t *testing.T) {
	tbl := table.MustNew("recipient_legal_name")
	require.NoError(t, tbl.AppendRow("Smith, E"))

	out, err := (&FixResearchOrganizations{}).Apply(tbl, NewReport(), Params{})
	require.NoError(t, err)
	assert.Same(t, tbl, out)
}

func TestIsLikelyInstitution(t *testing.T) {
	assert.True(t, isLikelyInstitution("Université de Montréal"))
	assert.True(t, isLikelyInstitution("Centre de recherche du CHUM"))
	assert.True(t, isLikelyInstitution("ACME Polytechnic"))
	assert.False(t, isLikelyInstitution("Jane Smith"))
}
