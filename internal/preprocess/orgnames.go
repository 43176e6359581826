package preprocess

import (
	"regexp"
	"strings"

	"github.com/opengrants/triagency-cli/internal/table"
)

var (
	delimiterRe  = regexp.MustCompile(`\s*([|/\\])\s*`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// CleanResearchOrganizationNames normalizes spacing around the bilingual
// delimiters (| / \) in research organization names.
type CleanResearchOrganizationNames struct{}

func (*CleanResearchOrganizationNames) Name() string {
	return "clean_research_organization_names"
}

func (*CleanResearchOrganizationNames) Description() string {
	return "Clean and standardize research organization names"
}

func (*CleanResearchOrganizationNames) Apply(t *table.Table, rep *Report, _ Params) (*table.Table, error) {
	const col = "research_organization_name"
	log := logger("clean_research_organization_names")

	if !t.HasColumn(col) {
		log.Warn("column not found, skipping", zapColumn(col))
		return t, nil
	}

	out := t.Clone()
	fixed := 0
	for i := 0; i < out.NumRows(); i++ {
		s, ok := table.AsString(out.Value(i, col))
		if !ok {
			continue
		}
		if delimiterRe.MatchString(s) {
			fixed++
		}
		s = delimiterRe.ReplaceAllString(s, " $1 ")
		s = multiSpaceRe.ReplaceAllString(s, " ")
		out.SetValue(i, col, strings.TrimSpace(s))
	}

	if fixed > 0 {
		rep.RecordIssue(IssueInvalidFormats, col, fixed)
	}
	rep.RecordFix(FixFormatsCorrected, col, fixed)

	return out, nil
}
