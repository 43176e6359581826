package preprocess

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/opengrants/triagency-cli/internal/table"
)

// Params carries per-stage options. The zero value means "use the
// processor's defaults".
type Params struct {
	// Columns overrides the default column set for processors that operate
	// on a configurable subset (numeric coercion, date normalization,
	// encoded-character cleanup).
	Columns []string
}

// Processor is a single table→table transform. Implementations operate
// defensively: when a required column is missing they log a warning and
// return the input unchanged rather than failing. Quality counts are
// recorded on the report passed in.
type Processor interface {
	Name() string
	Description() string
	Apply(t *table.Table, rep *Report, params Params) (*table.Table, error)
}

// Registry maps processor names to implementations so pipelines can be
// assembled by name.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry creates a registry populated with the default processors.
func NewRegistry() *Registry {
	r := &Registry{processors: make(map[string]Processor)}

	r.Register(&CleanColumnNames{})
	r.Register(&MapOrganizationCodes{})
	r.Register(&CleanResearchOrganizationNames{})
	r.Register(&StandardizeCityNames{})
	r.Register(&ExtractYearFromDate{})
	r.Register(&FixResearchOrganizations{})
	r.Register(&CleanEncodedCharacters{})
	r.Register(&EnsureNumericValues{})
	r.Register(&NormalizeDateFields{})
	r.Register(&ProcessAmendments{})

	return r
}

// Register adds a processor, overwriting any existing entry with the same
// name.
func (r *Registry) Register(p Processor) {
	r.processors[p.Name()] = p
}

// Get returns a processor by name. An unknown name is a configuration
// bug and fails fast.
func (r *Registry) Get(name string) (Processor, error) {
	p, ok := r.processors[name]
	if !ok {
		return nil, eris.Errorf("registry: unknown processor %q", name)
	}
	return p, nil
}

// List returns a name→description mapping of all registered processors.
func (r *Registry) List() map[string]string {
	out := make(map[string]string, len(r.processors))
	for name, p := range r.processors {
		out[name] = p.Description()
	}
	return out
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.processors))
	for name := range r.processors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
