package preprocess

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opengrants/triagency-cli/internal/table"
)

// Issue categories.
const (
	IssueMissingValues   = "missing_values"
	IssueInvalidFormats  = "invalid_formats"
	IssueOutliers        = "outliers"
	IssueInconsistencies = "inconsistencies"
)

// Fix categories. Processors may also record under ad-hoc pattern-fix
// names (e.g. "recipient_pipe") for the name-repair sub-steps.
const (
	FixMissingValuesFilled     = "missing_values_filled"
	FixFormatsCorrected        = "formats_corrected"
	FixOutliersHandled         = "outliers_handled"
	FixInconsistenciesResolved = "inconsistencies_resolved"
)

// Report tracks data quality issues found and fixes applied during one
// pipeline run. Counters are keyed by (category, column) and use
// last-write-wins semantics: a repeated record for the same key replaces
// the previous count rather than adding to it.
type Report struct {
	issues map[string]map[string]int
	fixes  map[string]map[string]int

	initialRows, finalRows int
	initialCols, finalCols int

	start   time.Time
	elapsed time.Duration
}

// Summary holds the headline metrics of a quality report.
type Summary struct {
	TotalIssues         int
	TotalFixes          int
	InitialRows         int
	FinalRows           int
	RowReduction        int
	RowReductionPercent float64
	ProcessingTime      time.Duration
}

// NewReport creates an empty report and starts its clock.
func NewReport() *Report {
	return &Report{
		issues: make(map[string]map[string]int),
		fixes:  make(map[string]map[string]int),
		start:  time.Now(),
	}
}

// RecordIssue records a detected issue count for (category, column),
// replacing any previous count for that key.
func (r *Report) RecordIssue(category, column string, count int) {
	if r.issues[category] == nil {
		r.issues[category] = make(map[string]int)
	}
	r.issues[category][column] = count
}

// RecordFix records an applied fix count for (category, column), replacing
// any previous count for that key.
func (r *Report) RecordFix(category, column string, count int) {
	if r.fixes[category] == nil {
		r.fixes[category] = make(map[string]int)
	}
	r.fixes[category][column] = count
}

// Issue returns the recorded issue count for (category, column).
func (r *Report) Issue(category, column string) int {
	return r.issues[category][column]
}

// Fix returns the recorded fix count for (category, column).
func (r *Report) Fix(category, column string) int {
	return r.fixes[category][column]
}

// Finalize records row/column deltas between the initial and final tables
// and stops the clock.
func (r *Report) Finalize(initial, final *table.Table) {
	r.initialRows = initial.NumRows()
	r.finalRows = final.NumRows()
	r.initialCols = initial.NumCols()
	r.finalCols = final.NumCols()
	r.elapsed = time.Since(r.start)
}

// Summarize computes the headline metrics.
func (r *Report) Summarize() Summary {
	s := Summary{
		InitialRows:    r.initialRows,
		FinalRows:      r.finalRows,
		RowReduction:   r.initialRows - r.finalRows,
		ProcessingTime: r.elapsed,
	}
	for _, byCol := range r.issues {
		for _, n := range byCol {
			s.TotalIssues += n
		}
	}
	for _, byCol := range r.fixes {
		for _, n := range byCol {
			s.TotalFixes += n
		}
	}
	if r.initialRows > 0 {
		s.RowReductionPercent = float64(s.RowReduction) / float64(r.initialRows) * 100
	}
	return s
}

// MergeMax folds another report's counters into this one, taking the
// maximum count per (category, column). Used when reassembling chunked
// runs, where per-chunk counts are a best-effort approximation of the
// whole-table counts.
func (r *Report) MergeMax(other *Report) {
	for cat, byCol := range other.issues {
		for col, n := range byCol {
			if n > r.issues[cat][col] {
				r.RecordIssue(cat, col, n)
			}
		}
	}
	for cat, byCol := range other.fixes {
		for col, n := range byCol {
			if n > r.fixes[cat][col] {
				r.RecordFix(cat, col, n)
			}
		}
	}
}

// Render produces the human-readable report. Detailed mode lists every
// (category, column) pair sorted by count descending.
func (r *Report) Render(detailed bool) string {
	s := r.Summarize()
	var b strings.Builder

	divider := strings.Repeat("=", 50)
	b.WriteString(divider + "\n")
	b.WriteString("DATA QUALITY REPORT\n")
	b.WriteString(divider + "\n\n")

	fmt.Fprintf(&b, "Processing Time: %.2f seconds\n", s.ProcessingTime.Seconds())
	fmt.Fprintf(&b, "Initial Row Count: %d\n", s.InitialRows)
	fmt.Fprintf(&b, "Final Row Count: %d\n", s.FinalRows)
	fmt.Fprintf(&b, "Row Reduction: %d (%.2f%%)\n\n", s.RowReduction, s.RowReductionPercent)

	fmt.Fprintf(&b, "Total Issues Detected: %d\n", s.TotalIssues)
	fmt.Fprintf(&b, "Total Issues Fixed: %d\n", s.TotalFixes)

	if detailed {
		renderCategories(&b, "DETAILED ISSUE REPORT", r.issues)
		renderCategories(&b, "DETAILED FIX REPORT", r.fixes)
	}

	b.WriteString("\n" + divider + "\n")
	return b.String()
}

func renderCategories(b *strings.Builder, title string, categories map[string]map[string]int) {
	divider := strings.Repeat("-", 50)
	fmt.Fprintf(b, "\n%s\n%s\n%s\n", divider, title, divider)

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		byCol := categories[name]
		if len(byCol) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n%s:\n", titleCase(name))

		type entry struct {
			col string
			n   int
		}
		entries := make([]entry, 0, len(byCol))
		for col, n := range byCol {
			entries = append(entries, entry{col, n})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].n != entries[j].n {
				return entries[i].n > entries[j].n
			}
			return entries[i].col < entries[j].col
		})
		for _, e := range entries {
			fmt.Fprintf(b, "  - %s: %d\n", e.col, e.n)
		}
	}
}

// titleCase turns a snake_case category name into a display heading.
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
