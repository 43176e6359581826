package preprocess

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/table"
)

var (
	nonSnakeRe    = regexp.MustCompile(`[^a-z0-9_]+`)
	repeatUnderRe = regexp.MustCompile(`_+`)
)

// CleanColumnNames standardizes column names to snake_case: lowercase,
// strip whitespace, replace runs of other characters with underscores,
// collapse repeats, trim leading/trailing underscores. Idempotent.
type CleanColumnNames struct{}

func (*CleanColumnNames) Name() string { return "clean_column_names" }

func (*CleanColumnNames) Description() string {
	return "Standardize column names to snake_case format"
}

func (*CleanColumnNames) Apply(t *table.Table, rep *Report, _ Params) (*table.Table, error) {
	out := t.Clone()
	cols := out.Columns()
	for i, col := range cols {
		c := strings.ToLower(strings.TrimSpace(col))
		c = nonSnakeRe.ReplaceAllString(c, "_")
		c = repeatUnderRe.ReplaceAllString(c, "_")
		cols[i] = strings.Trim(c, "_")
	}
	if err := out.SetColumns(cols); err != nil {
		return nil, err
	}
	return out, nil
}

// orgCodes maps the tri-agency source codes to their canonical labels.
var orgCodes = map[string]string{
	"cihr-irsc":   "CIHR",
	"nserc-crsng": "NSERC",
	"sshrc-crsh":  "SSHRC",
}

// MapOrganizationCodes maps raw agency codes to standardized labels and
// renames owner_org→org and owner_org_title→org_title. Unrecognized codes
// pass through unchanged.
type MapOrganizationCodes struct{}

func (*MapOrganizationCodes) Name() string { return "map_organization_codes" }

func (*MapOrganizationCodes) Description() string {
	return "Map raw organization codes to standardized names"
}

func (*MapOrganizationCodes) Apply(t *table.Table, rep *Report, _ Params) (*table.Table, error) {
	out := t.Clone()

	if out.HasColumn("owner_org") {
		unmapped := 0
		for i := 0; i < out.NumRows(); i++ {
			code, ok := table.AsString(out.Value(i, "owner_org"))
			if !ok {
				continue
			}
			if label, known := orgCodes[code]; known {
				out.SetValue(i, "owner_org", label)
			} else {
				unmapped++
			}
		}
		if unmapped > 0 {
			logger("map_organization_codes").Warn("unmapped organization codes passed through",
				zap.Int("count", unmapped))
			rep.RecordIssue(IssueInconsistencies, "owner_org", unmapped)
		}
		out.RenameColumn("owner_org", "org")
	}

	if out.HasColumn("owner_org_title") {
		out.RenameColumn("owner_org_title", "org_title")
	}

	return out, nil
}
