package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrants/triagency-cli/internal/table"
)

func TestRegistry_DefaultProcessors(t *testing.T) {
	reg := NewRegistry()

	want := []string{
		"clean_column_names",
		"clean_encoded_characters",
		"clean_research_organization_names",
		"ensure_numeric_values",
		"extract_year_from_date",
		"fix_research_organizations",
		"map_organization_codes",
		"normalize_date_fields",
		"process_amendments",
		"standardize_city_names",
	}
	assert.Equal(t, want, reg.Names())

	for name, desc := range reg.List() {
		assert.NotEmpty(t, desc, "processor %s has no description", name)
	}
}

func TestRegistry_Get_Unknown(t *testing.T) {
	_, err := NewRegistry().Get("no_such_processor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown processor "no_such_processor"`)
}

type stubProcessor struct{ name string }

func (s *stubProcessor) Name() string        { return s.name }
func (s *stubProcessor) Description() string { return "stub" }
func (s *stubProcessor) Apply(t *table.Table, _ *Report, _ Params) (*table.Table, error) {
	return t, nil
}

func TestRegistry_Register_Overwrites(t *testing.T) {
	reg := NewRegistry()
	stub := &stubProcessor{name: "clean_column_names"}
	reg.Register(stub)

	got, err := reg.Get("clean_column_names")
	require.NoError(t, err)
	assert.Same(t, stub, got)
}
