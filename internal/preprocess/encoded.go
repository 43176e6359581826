package preprocess

import (
	"strings"

	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/table"
)

// CleanEncodedCharacters replaces the spreadsheet-export escape tokens
// _x000D_ (carriage return) and _x000B_ (vertical tab) with a single space
// in every text column, or a caller-specified subset, then collapses any
// double spaces that result. Counts are per column.
type CleanEncodedCharacters struct{}

func (*CleanEncodedCharacters) Name() string { return "clean_encoded_characters" }

func (*CleanEncodedCharacters) Description() string {
	return "Clean encoded characters like _x000D_ and _x000B_ in text fields"
}

func (*CleanEncodedCharacters) Apply(t *table.Table, rep *Report, params Params) (*table.Table, error) {
	log := logger("clean_encoded_characters")

	cols := params.Columns
	if len(cols) == 0 {
		cols = t.Columns()
	}

	out := t.Clone()
	for _, col := range cols {
		if !out.HasColumn(col) {
			continue
		}

		count := 0
		for i := 0; i < out.NumRows(); i++ {
			s, ok := out.Value(i, col).(string)
			if !ok {
				continue
			}
			if strings.Contains(s, "_x000D_") {
				count++
			}
			if strings.Contains(s, "_x000B_") {
				count++
			}
		}
		if count == 0 {
			continue
		}

		for i := 0; i < out.NumRows(); i++ {
			s, ok := out.Value(i, col).(string)
			if !ok {
				continue
			}
			s = strings.ReplaceAll(s, "_x000D_", " ")
			s = strings.ReplaceAll(s, "_x000B_", " ")
			out.SetValue(i, col, multiSpaceRe.ReplaceAllString(s, " "))
		}

		rep.RecordIssue(IssueInvalidFormats, col, count)
		rep.RecordFix(FixFormatsCorrected, col, count)
		log.Info("cleaned encoded characters", zapColumn(col), zap.Int("count", count))
	}

	return out, nil
}
