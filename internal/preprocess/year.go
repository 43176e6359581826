package preprocess

import (
	"regexp"
	"strconv"

	"github.com/opengrants/triagency-cli/internal/table"
)

var leadingYearRe = regexp.MustCompile(`^(\d{4})`)

// ExtractYearFromDate derives a numeric year column from the leading
// 4-digit sequence of the agreement start date. Values without a 4-digit
// prefix become null. If the source column is absent the year column is
// still created, all null.
type ExtractYearFromDate struct{}

func (*ExtractYearFromDate) Name() string { return "extract_year_from_date" }

func (*ExtractYearFromDate) Description() string {
	return "Extract year from date fields and add as a column"
}

func (*ExtractYearFromDate) Apply(t *table.Table, rep *Report, _ Params) (*table.Table, error) {
	const src = "agreement_start_date"
	log := logger("extract_year_from_date")

	out := t.Clone()
	out.AddColumn("year", nil)

	if !out.HasColumn(src) {
		log.Warn("column not found, year column is all null", zapColumn(src))
		rep.RecordIssue(IssueMissingValues, "year", out.NumRows())
		return out, nil
	}

	missing := 0
	for i := 0; i < out.NumRows(); i++ {
		s, ok := table.AsString(out.Value(i, src))
		if !ok {
			missing++
			continue
		}
		m := leadingYearRe.FindStringSubmatch(s)
		if m == nil {
			missing++
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			missing++
			continue
		}
		out.SetValue(i, "year", float64(year))
	}

	if missing > 0 {
		rep.RecordIssue(IssueMissingValues, "year", missing)
	}

	return out, nil
}
