package preprocess

import (
	"strings"
	"time"

	"github.com/opengrants/triagency-cli/internal/table"
)

// defaultDateColumns are the columns normalized when no override is
// configured.
var defaultDateColumns = []string{
	"agreement_start_date",
	"agreement_end_date",
	"amendment_date",
}

// dateLayouts are tried in order. The source data mixes ISO dates,
// ISO timestamps, and North American slash formats.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"2 January 2006",
	"2006-01",
}

// parseDate tries each known layout against the trimmed input.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// NormalizeDateFields re-emits the configured date columns as YYYY-MM-DD
// strings. Unparseable non-null values become null and are counted as an
// issue.
type NormalizeDateFields struct{}

func (*NormalizeDateFields) Name() string { return "normalize_date_fields" }

func (*NormalizeDateFields) Description() string {
	return "Normalize date fields to consistent format"
}

func (*NormalizeDateFields) Apply(t *table.Table, rep *Report, params Params) (*table.Table, error) {
	cols := params.Columns
	if len(cols) == 0 {
		cols = defaultDateColumns
	}

	out := t.Clone()
	for _, col := range cols {
		if !out.HasColumn(col) {
			continue
		}

		invalid := 0
		for i := 0; i < out.NumRows(); i++ {
			s, ok := table.AsString(out.Value(i, col))
			if !ok {
				continue
			}
			ts, parsed := parseDate(s)
			if !parsed {
				invalid++
				out.SetValue(i, col, nil)
				continue
			}
			out.SetValue(i, col, ts.Format("2006-01-02"))
		}

		if invalid > 0 {
			rep.RecordIssue(IssueInvalidFormats, col, invalid)
			rep.RecordFix(FixFormatsCorrected, col, invalid)
		}
	}

	return out, nil
}
