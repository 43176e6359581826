package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrants/triagency-cli/internal/table"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func grantTestTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.MustNew(
		"ref_number", "latest_amendment_number", "agreement_value",
		"agreement_start_date", "year",
		"recipient_legal_name", "research_organization_name",
		"recipient_country", "recipient_city",
		"prog_name_en", "org", "org_title",
	)
	require.NoError(t, tbl.AppendRow(
		"REF001", 0.0, 100000.0, "2019-04-01", 2019.0,
		"University of Toronto", "University of Toronto", "Canada", "Toronto",
		"Discovery Grants", "NSERC", "Natural Sciences and Engineering Research Council",
	))
	require.NoError(t, tbl.AppendRow(
		"REF002", 1.0, 250000.0, "2020-04-01", 2020.0,
		"University of Toronto", "University of Toronto", "Canada", "Toronto",
		"Discovery Grants", "NSERC", "Natural Sciences and Engineering Research Council",
	))
	require.NoError(t, tbl.AppendRow(
		"REF003", 0.0, 50000.0, "2020-09-01", 2020.0,
		"McGill University", "McGill University", "Canada", "Montreal",
		"Insight Grants", "SSHRC", "Social Sciences and Humanities Research Council",
	))
	return tbl
}

func TestSQLite_LoadGrants(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stats, err := st.LoadGrants(ctx, grantTestTable(t))
	require.NoError(t, err)

	assert.NotEmpty(t, stats.BatchID)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 2, stats.Recipients)
	assert.Equal(t, 2, stats.Programs)
	assert.Equal(t, 2, stats.Organizations)
	assert.Equal(t, int64(3), stats.Grants)

	var n int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM research_grants`).Scan(&n))
	assert.Equal(t, 3, n)
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM recipients`).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM load_history`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLite_LoadGrants_Rerun_IsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.LoadGrants(ctx, grantTestTable(t))
	require.NoError(t, err)

	stats, err := st.LoadGrants(ctx, grantTestTable(t))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Grants)
	assert.Equal(t, 0, stats.Recipients)

	var n int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM research_grants`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestSQLite_LoadGrants_NullKeyColumns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tbl := table.MustNew("ref_number", "recipient_legal_name", "recipient_city", "org")
	require.NoError(t, tbl.AppendRow("REF010", "Acme Institute", nil, "CIHR"))
	require.NoError(t, tbl.AppendRow("REF011", "Acme Institute", nil, "CIHR"))

	stats, err := st.LoadGrants(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Recipients)
	assert.Equal(t, int64(2), stats.Grants)
}

func TestSQLite_LoadGrants_EmptyTable(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.LoadGrants(context.Background(), table.MustNew("ref_number"))
	assert.Error(t, err)
}

func TestSQLite_LinksGrantToRecipient(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.LoadGrants(ctx, grantTestTable(t))
	require.NoError(t, err)

	var legal string
	err = st.db.QueryRow(
		`SELECT r.legal_name FROM research_grants g
		 JOIN recipients r ON r.id = g.recipient_id
		 WHERE g.ref_number = 'REF003'`,
	).Scan(&legal)
	require.NoError(t, err)
	assert.Equal(t, "McGill University", legal)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer st.Close()
	assert.NoError(t, st.Migrate(context.Background()))
}
