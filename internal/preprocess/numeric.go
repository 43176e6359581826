package preprocess

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/opengrants/triagency-cli/internal/table"
)

// defaultNumericColumns are the columns coerced to numeric when no
// override is configured.
var defaultNumericColumns = []string{
	"agreement_value",
	"foreign_currency_value",
	"amendment_number",
}

var strictNumericRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// EnsureNumericValues coerces the configured columns to float64: any
// character that is not a digit, decimal point, or minus sign is stripped
// before parsing, and anything still unparseable becomes 0.
type EnsureNumericValues struct{}

func (*EnsureNumericValues) Name() string { return "ensure_numeric_values" }

func (*EnsureNumericValues) Description() string {
	return "Ensure specified columns are properly formatted as numeric values"
}

func (*EnsureNumericValues) Apply(t *table.Table, rep *Report, params Params) (*table.Table, error) {
	cols := params.Columns
	if len(cols) == 0 {
		cols = defaultNumericColumns
	}

	out := t.Clone()
	for _, col := range cols {
		if !out.HasColumn(col) {
			continue
		}

		nonNumeric := 0
		for i := 0; i < out.NumRows(); i++ {
			v := out.Value(i, col)
			if f, isNum := v.(float64); isNum {
				out.SetValue(i, col, f)
				continue
			}
			s, ok := table.AsString(v)
			if !ok || !strictNumericRe.MatchString(s) {
				nonNumeric++
			}
			out.SetValue(i, col, coerceNumeric(s))
		}

		if nonNumeric > 0 {
			rep.RecordIssue(IssueInvalidFormats, col, nonNumeric)
			rep.RecordFix(FixFormatsCorrected, col, nonNumeric)
		}
	}

	return out, nil
}

// coerceNumeric strips everything but digits, '.', and '-' then parses.
// Unparseable input maps to 0.
func coerceNumeric(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
