package preprocess

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/table"
)

// institutionKeywords is the bilingual keyword list used to decide whether
// a recipient name refers to an institution rather than a person. Matching
// is case-insensitive substring, not word-boundary; occasional false
// positives (e.g. "Centre" inside an unrelated proper noun) are accepted.
var institutionKeywords = []string{
	"university", "université", "univ.", "univ ",
	"college", "collège", "coll.",
	"institute", "institut", "inst.",
	"school", "école", "ecole",
	"academy", "académie", "academie",
	"cegep", "cégep",
	"polytechnique", "polytechnic",
	"research centre", "centre de recherche",
	"laboratory", "laboratoire", "lab ",
	"hospital", "hôpital", "hopital",
	"foundation", "fondation",
	"center", "centre",
	"council", "conseil",
}

// parenOrgKeywords is the shorter keyword list used only to disambiguate
// the "text (text)" pattern.
var parenOrgKeywords = []string{
	"university", "université", "univ", "college", "collège", "institute",
	"institut", "school", "école", "center", "centre", "hospital", "hôpital",
}

var (
	doubleParenRe   = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)\s*\(([^()]*)\)$`)
	singleParenRe   = regexp.MustCompile(`^(.*?)\s*\((.*?)\)\s*$`)
	bracketBodyRe   = regexp.MustCompile(`\s*\(.*?\)`)
	trailingPunctRe = regexp.MustCompile(`[.,;:()\[\]]*$`)
	leadingTheRe    = regexp.MustCompile(`(?i)^the\s+`)
)

// isLikelyInstitution reports whether a name likely refers to an
// institution based on the bilingual keyword list.
func isLikelyInstitution(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range institutionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsParenOrgKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range parenOrgKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FixResearchOrganizations repairs recipient and research organization
// names: splits parenthesized recipient/organization composites, keeps the
// English side of bilingual values (French side for cities), repairs
// unbalanced brackets, strips trailing punctuation, backfills missing
// organization names from institution-like recipient names, and drops a
// leading "The" from organization names. Sub-steps run in a fixed order
// and each records its affected-row count as a named fix.
type FixResearchOrganizations struct{}

func (*FixResearchOrganizations) Name() string { return "fix_research_organizations" }

func (*FixResearchOrganizations) Description() string {
	return "Fix missing research organization names using recipient names"
}

func (*FixResearchOrganizations) Apply(t *table.Table, rep *Report, _ Params) (*table.Table, error) {
	const (
		recipientCol = "recipient_legal_name"
		orgCol       = "research_organization_name"
		cityCol      = "recipient_city"
	)
	log := logger("fix_research_organizations")

	if !t.HasColumn(recipientCol) {
		log.Warn("column not found, skipping", zapColumn(recipientCol))
		return t, nil
	}
	if !t.HasColumn(orgCol) {
		log.Warn("column not found, skipping", zapColumn(orgCol))
		return t, nil
	}

	out := t.Clone()
	fixes := make(map[string]int)

	// Step 1: "text (text1) (text2)" recipients. The trailing bracket group
	// is the organization, the rest is the cleaned recipient name.
	for i := 0; i < out.NumRows(); i++ {
		s, ok := table.AsString(out.Value(i, recipientCol))
		if !ok {
			continue
		}
		m := doubleParenRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		fixes["complex_parentheses"]++
		out.SetValue(i, recipientCol, strings.TrimSpace(m[1]+" ("+m[2]+")"))
		if table.IsNull(out.Value(i, orgCol)) {
			out.SetValue(i, orgCol, strings.TrimSpace(m[3]))
		}
	}

	// Step 2: "text (text)" recipients. Decide which side is the person's
	// name and which is the organization from two signals, in priority
	// order: comma on one side with a keyword on the other, then comma
	// alone, then keyword alone, then default to before=name inside=org.
	for i := 0; i < out.NumRows(); i++ {
		s, ok := table.AsString(out.Value(i, recipientCol))
		if !ok {
			continue
		}
		m := singleParenRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		fixes["recipient_parentheses"]++

		before := strings.TrimSpace(m[1])
		inside := strings.TrimSpace(m[2])

		commaBefore := strings.Contains(before, ",")
		commaInside := strings.Contains(inside, ",")
		kwBefore := containsParenOrgKeyword(before)
		kwInside := containsParenOrgKeyword(inside)

		nameIsBefore := true
		switch {
		case commaBefore && kwInside && !commaInside:
			nameIsBefore = true
		case commaInside && kwBefore && !commaBefore:
			nameIsBefore = false
		case commaBefore && !commaInside:
			nameIsBefore = true
		case commaInside && !commaBefore:
			nameIsBefore = false
		case kwBefore && !kwInside:
			nameIsBefore = false
		case kwInside && !kwBefore:
			nameIsBefore = true
		}

		name, org := before, inside
		if !nameIsBefore {
			name, org = inside, before
		}
		out.SetValue(i, recipientCol, name)
		if table.IsNull(out.Value(i, orgCol)) {
			out.SetValue(i, orgCol, org)
		}
	}

	// Step 3: bilingual delimiters. English is listed first in the name
	// fields, so keep the part before the first | or /. City fields list
	// French second and the French form is preferred, so keep the part
	// after the |.
	fixes["recipient_pipe"] = keepBeforeDelimiter(out, recipientCol, "|")
	fixes["research_org_pipe"] = keepBeforeDelimiter(out, orgCol, "|")
	if out.HasColumn(cityCol) {
		fixes["city_pipe"] = keepAfterDelimiter(out, cityCol, "|")
	}
	fixes["recipient_slash"] = keepBeforeDelimiter(out, recipientCol, "/")
	fixes["research_org_slash"] = keepBeforeDelimiter(out, orgCol, "/")

	// Step 4: organization names only, " - " separates English and French
	// forms.
	fixes["research_org_dash"] = keepBeforeDelimiter(out, orgCol, " - ")

	// Step 5: unbalanced trailing ")" repair.
	fixes["unbalanced_parentheses"] = fixUnbalancedParens(out, recipientCol) +
		fixUnbalancedParens(out, orgCol)

	// Step 6: strip remaining fully-bracketed content from organizations.
	for i := 0; i < out.NumRows(); i++ {
		s, ok := table.AsString(out.Value(i, orgCol))
		if !ok {
			continue
		}
		if !bracketBodyRe.MatchString(s) {
			continue
		}
		fixes["trailing_parentheses"]++
		out.SetValue(i, orgCol, strings.TrimSpace(bracketBodyRe.ReplaceAllString(s, "")))
	}

	// Step 7: trailing punctuation.
	for _, col := range []string{recipientCol, orgCol} {
		for i := 0; i < out.NumRows(); i++ {
			s, ok := table.AsString(out.Value(i, col))
			if !ok {
				continue
			}
			out.SetValue(i, col, strings.TrimSpace(trailingPunctRe.ReplaceAllString(s, "")))
		}
	}

	// Step 8: backfill null organizations from institution-like recipients.
	missing := 0
	filled := 0
	for i := 0; i < out.NumRows(); i++ {
		if !table.IsNull(out.Value(i, orgCol)) {
			continue
		}
		missing++
		name, ok := table.AsString(out.Value(i, recipientCol))
		if !ok || !isLikelyInstitution(name) {
			continue
		}
		out.SetValue(i, orgCol, name)
		filled++
	}
	if missing > 0 {
		rep.RecordIssue(IssueMissingValues, orgCol, missing)
	}
	if filled > 0 {
		rep.RecordFix(FixMissingValuesFilled, orgCol, filled)
		log.Info("filled missing research organization names", zap.Int("count", filled))
	}

	// Step 9: drop a leading "The " from organization names.
	for i := 0; i < out.NumRows(); i++ {
		s, ok := table.AsString(out.Value(i, orgCol))
		if !ok {
			continue
		}
		if !leadingTheRe.MatchString(s) {
			continue
		}
		fixes["unneeded_the"]++
		out.SetValue(i, orgCol, leadingTheRe.ReplaceAllString(s, ""))
	}

	for name, count := range fixes {
		if count > 0 {
			rep.RecordFix(name, recipientCol+"/"+orgCol, count)
		}
	}

	return out, nil
}

// keepBeforeDelimiter truncates each value at the first occurrence of the
// delimiter, keeping the left side. Returns the number of rows changed.
func keepBeforeDelimiter(t *table.Table, col, delim string) int {
	changed := 0
	for i := 0; i < t.NumRows(); i++ {
		s, ok := table.AsString(t.Value(i, col))
		if !ok || !strings.Contains(s, delim) {
			continue
		}
		changed++
		before, _, _ := strings.Cut(s, delim)
		t.SetValue(i, col, strings.TrimSpace(before))
	}
	return changed
}

// keepAfterDelimiter truncates each value at the first occurrence of the
// delimiter, keeping the right side.
func keepAfterDelimiter(t *table.Table, col, delim string) int {
	changed := 0
	for i := 0; i < t.NumRows(); i++ {
		s, ok := table.AsString(t.Value(i, col))
		if !ok || !strings.Contains(s, delim) {
			continue
		}
		changed++
		_, after, _ := strings.Cut(s, delim)
		t.SetValue(i, col, strings.TrimSpace(after))
	}
	return changed
}

// fixUnbalancedParens strips the first unmatched ")" and everything after
// it from values with more closing than opening parentheses.
func fixUnbalancedParens(t *table.Table, col string) int {
	changed := 0
	for i := 0; i < t.NumRows(); i++ {
		s, ok := table.AsString(t.Value(i, col))
		if !ok {
			continue
		}
		if strings.Count(s, ")") <= strings.Count(s, "(") {
			continue
		}
		depth := 0
		cut := -1
		for j, r := range s {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
				if depth < 0 {
					cut = j
				}
			}
			if cut >= 0 {
				break
			}
		}
		if cut < 0 {
			continue
		}
		changed++
		t.SetValue(i, col, strings.TrimSpace(s[:cut]))
	}
	return changed
}
