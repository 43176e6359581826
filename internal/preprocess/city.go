package preprocess

import (
	"regexp"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/opengrants/triagency-cli/internal/table"
)

// standardCityRe matches already-standardized city names: capitalized
// words joined by single spaces or hyphens.
var standardCityRe = regexp.MustCompile(`^[A-Z][a-z]+(?:[\s-][A-Z][a-z]+)*$`)

// StandardizeCityNames title-cases city names and repairs the casing of
// apostrophe'd and hyphenated place names (St. John's, Notre-Dame). The
// letter after an apostrophe is uppercased unless the apostrophe marks an
// English possessive 's, which stays lowercase.
type StandardizeCityNames struct{}

func (*StandardizeCityNames) Name() string { return "standardize_city_names" }

func (*StandardizeCityNames) Description() string {
	return "Standardize city names to consistent format"
}

func (*StandardizeCityNames) Apply(t *table.Table, rep *Report, _ Params) (*table.Table, error) {
	const col = "recipient_city"
	log := logger("standardize_city_names")

	if !t.HasColumn(col) {
		log.Warn("column not found, skipping", zapColumn(col))
		return t, nil
	}

	out := t.Clone()
	caser := cases.Title(language.English)
	inconsistent := 0

	for i := 0; i < out.NumRows(); i++ {
		s, ok := table.AsString(out.Value(i, col))
		if !ok {
			continue
		}
		if !standardCityRe.MatchString(s) {
			inconsistent++
		}
		out.SetValue(i, col, fixCityCasing(caser.String(s)))
	}

	if inconsistent > 0 {
		rep.RecordIssue(IssueInconsistencies, col, inconsistent)
	}
	rep.RecordFix(FixInconsistenciesResolved, col, inconsistent)

	return out, nil
}

// fixCityCasing applies the apostrophe and hyphen casing rules on top of
// plain title casing.
func fixCityCasing(s string) string {
	runes := []rune(s)

	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '\'':
			// Uppercase the letter after an apostrophe when more of the
			// word follows (L'Anse, O'Brien) but leave a possessive or
			// word-final 's alone (St. John's).
			if isWordRune(runes[i+1]) && i+2 < len(runes) && !unicode.IsSpace(runes[i+2]) {
				runes[i+1] = unicode.ToUpper(runes[i+1])
			}
			if (runes[i+1] == 'S' || runes[i+1] == 's') &&
				(i+2 >= len(runes) || !isWordRune(runes[i+2])) {
				runes[i+1] = 's'
			}
		case '-':
			if isWordRune(runes[i+1]) {
				runes[i+1] = unicode.ToUpper(runes[i+1])
			}
		}
	}

	return string(runes)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
