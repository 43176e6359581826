package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/opengrants/triagency-cli/internal/table"
)

// LoadStats summarizes a single load batch.
type LoadStats struct {
	BatchID       string `json:"batch_id"`
	Rows          int    `json:"rows"`
	Recipients    int    `json:"recipients"`
	Programs      int    `json:"programs"`
	Organizations int    `json:"organizations"`
	Grants        int64  `json:"grants"`
}

// Store defines the persistence interface for preprocessed grant data.
type Store interface {
	// LoadGrants inserts the rows of a preprocessed grant table,
	// normalizing recipients, programs and funding organizations into
	// their own tables, and records the batch in load_history.
	LoadGrants(ctx context.Context, t *table.Table) (*LoadStats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// grantColumns are the research_grants columns filled straight from the
// preprocessed table, in insert order. Foreign keys and the batch id are
// appended separately.
var grantColumns = []string{
	"ref_number",
	"latest_amendment_number",
	"amendment_date",
	"agreement_type",
	"agreement_number",
	"agreement_value",
	"foreign_currency_type",
	"foreign_currency_value",
	"agreement_start_date",
	"agreement_end_date",
	"agreement_title_en",
	"agreement_title_fr",
	"description_en",
	"description_fr",
	"expected_results_en",
	"expected_results_fr",
	"year",
	"amendments_history",
}

// cell reads a value from the table, returning nil for absent columns.
func cell(t *table.Table, row int, col string) any {
	if !t.HasColumn(col) {
		return nil
	}
	return t.Value(row, col)
}

// recipientKey identifies a recipient across rows. Null components
// collapse to the empty string so rows with partial addresses still
// group together.
func recipientKey(t *table.Table, row int) string {
	key := ""
	for _, col := range []string{"recipient_legal_name", "research_organization_name", "recipient_country", "recipient_city"} {
		s, _ := table.AsString(cell(t, row, col))
		key += s + "\x1f"
	}
	return key
}
