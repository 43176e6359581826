package preprocess

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/table"
)

// discriminatorColumns disambiguate grants whose ref_number legitimately
// covers multiple distinct agreements. Only the columns present in the
// table are used, in this order.
var discriminatorColumns = []string{
	"recipient_legal_name",
	"org",
	"prog_name_en",
	"agreement_title_en",
}

// historyColumns are the fields carried into each superseded amendment's
// history entry. Null fields are omitted.
var historyColumns = []string{
	"amendment_number",
	"amendment_date",
	"agreement_value",
	"agreement_start_date",
	"agreement_end_date",
	"additional_information_en",
}

// ProcessAmendments collapses amendment chains into one row per grant.
// Rows are grouped by ref_number plus the present discriminator columns;
// within each group the row with the highest amendment number survives and
// the rest are embedded, newest first, as a JSON list in the
// amendments_history column. The surviving amendment_number column is
// renamed latest_amendment_number.
//
// Any error during consolidation aborts the whole stage: the input table
// is returned unchanged, never a partially consolidated one.
type ProcessAmendments struct{}

func (*ProcessAmendments) Name() string { return "process_amendments" }

func (*ProcessAmendments) Description() string {
	return "Process grant amendments to create a consolidated dataset"
}

func (*ProcessAmendments) Apply(t *table.Table, rep *Report, _ Params) (*table.Table, error) {
	log := logger("process_amendments")

	for _, col := range []string{"ref_number", "amendment_number"} {
		if !t.HasColumn(col) {
			log.Warn("required column not found, cannot process amendments", zapColumn(col))
			return t, nil
		}
	}

	out, reduced, err := consolidateAmendments(t)
	if err != nil {
		log.Error("amendment processing failed, returning table unchanged", zap.Error(err))
		return t, err
	}

	rep.RecordFix(FixInconsistenciesResolved, "amendments", reduced)
	log.Info("amendment processing complete",
		zap.Int("rows_before", t.NumRows()),
		zap.Int("rows_after", out.NumRows()),
		zap.Int("rows_reduced", reduced),
	)
	return out, nil
}

func consolidateAmendments(t *table.Table) (*table.Table, int, error) {
	work := t.Clone()

	// Amendment numbers must be numeric for ordering; unparseable or
	// missing values sort as 0.
	for i := 0; i < work.NumRows(); i++ {
		v := work.Value(i, "amendment_number")
		if _, isNum := v.(float64); isNum {
			continue
		}
		s, _ := table.AsString(v)
		work.SetValue(i, "amendment_number", coerceNumeric(s))
	}

	var discs []string
	for _, col := range discriminatorColumns {
		if work.HasColumn(col) {
			discs = append(discs, col)
		}
	}

	groups := make(map[string][]int)
	var order []string
	for i := 0; i < work.NumRows(); i++ {
		var key strings.Builder
		ref, _ := table.AsString(work.Value(i, "ref_number"))
		key.WriteString(ref)
		for _, col := range discs {
			s, _ := table.AsString(work.Value(i, col))
			key.WriteString("|")
			key.WriteString(s)
		}
		k := key.String()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	historyCols := make([]string, 0, len(historyColumns))
	for _, col := range historyColumns {
		if work.HasColumn(col) {
			historyCols = append(historyCols, col)
		}
	}

	out := table.MustNew(work.Columns()...)
	out.AddColumn("amendments_history", nil)

	for _, key := range order {
		rows := groups[key]

		// Stable descending sort by amendment number: earliest row wins
		// ties, matching the original insertion order.
		sorted := append([]int(nil), rows...)
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0; j-- {
				a, _ := table.AsFloat(work.Value(sorted[j], "amendment_number"))
				b, _ := table.AsFloat(work.Value(sorted[j-1], "amendment_number"))
				if a <= b {
					break
				}
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			}
		}

		survivor := sorted[0]
		var history []map[string]any
		for _, row := range sorted[1:] {
			entry := make(map[string]any, len(historyCols))
			for _, col := range historyCols {
				if v := work.Value(row, col); !table.IsNull(v) {
					entry[col] = v
				}
			}
			history = append(history, entry)
		}

		var historyCell any
		if len(history) > 0 {
			encoded, err := json.Marshal(history)
			if err != nil {
				return nil, 0, err
			}
			historyCell = string(encoded)
		}

		cells := make([]any, 0, out.NumCols())
		for _, col := range work.Columns() {
			cells = append(cells, work.Value(survivor, col))
		}
		cells = append(cells, historyCell)
		if err := out.AppendRow(cells...); err != nil {
			return nil, 0, err
		}
	}

	out.RenameColumn("amendment_number", "latest_amendment_number")

	return out, work.NumRows() - out.NumRows(), nil
}
