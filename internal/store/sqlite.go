package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/opengrants/triagency-cli/internal/table"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS recipients (
	id                         TEXT PRIMARY KEY,
	legal_name                 TEXT,
	research_organization_name TEXT,
	country                    TEXT,
	province                   TEXT,
	city                       TEXT,
	postal_code                TEXT,
	riding_name_en             TEXT,
	riding_name_fr             TEXT,
	riding_number              TEXT,
	UNIQUE(legal_name, research_organization_name, country, city)
);

CREATE TABLE IF NOT EXISTS programs (
	prog_id    TEXT PRIMARY KEY,
	name_en    TEXT,
	name_fr    TEXT,
	purpose_en TEXT,
	purpose_fr TEXT
);

CREATE TABLE IF NOT EXISTS organizations (
	org   TEXT PRIMARY KEY,
	title TEXT
);

CREATE TABLE IF NOT EXISTS research_grants (
	id                      TEXT PRIMARY KEY,
	ref_number              TEXT NOT NULL,
	latest_amendment_number REAL,
	amendment_date          TEXT,
	agreement_type          TEXT,
	agreement_number        TEXT,
	agreement_value         REAL,
	foreign_currency_type   TEXT,
	foreign_currency_value  REAL,
	agreement_start_date    TEXT,
	agreement_end_date      TEXT,
	agreement_title_en      TEXT,
	agreement_title_fr      TEXT,
	description_en          TEXT,
	description_fr          TEXT,
	expected_results_en     TEXT,
	expected_results_fr     TEXT,
	year                    REAL,
	amendments_history      TEXT,
	org                     TEXT REFERENCES organizations(org),
	recipient_id            TEXT REFERENCES recipients(id),
	prog_id                 TEXT REFERENCES programs(prog_id),
	batch_id                TEXT,
	UNIQUE(ref_number, recipient_id, prog_id)
);

CREATE TABLE IF NOT EXISTS load_history (
	id        TEXT PRIMARY KEY,
	loaded_at DATETIME NOT NULL DEFAULT (datetime('now')),
	rows      INTEGER NOT NULL,
	grants    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_grants_ref_number ON research_grants(ref_number);
CREATE INDEX IF NOT EXISTS idx_grants_recipient ON research_grants(recipient_id);
CREATE INDEX IF NOT EXISTS idx_grants_org ON research_grants(org);
CREATE INDEX IF NOT EXISTS idx_grants_year ON research_grants(year);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadGrants(ctx context.Context, t *table.Table) (*LoadStats, error) {
	if t == nil || t.Empty() {
		return nil, eris.New("sqlite: load: empty table")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load: begin tx")
	}
	defer tx.Rollback()

	stats := &LoadStats{
		BatchID: uuid.New().String(),
		Rows:    t.NumRows(),
	}
	recipientIDs := make(map[string]string)
	seenPrograms := make(map[string]bool)
	seenOrgs := make(map[string]bool)

	for i := 0; i < t.NumRows(); i++ {
		recipientID, err := s.upsertRecipient(ctx, tx, t, i, recipientIDs, stats)
		if err != nil {
			return nil, err
		}
		progID, err := s.upsertProgram(ctx, tx, t, i, seenPrograms, stats)
		if err != nil {
			return nil, err
		}
		org, err := s.upsertOrganization(ctx, tx, t, i, seenOrgs, stats)
		if err != nil {
			return nil, err
		}

		args := []any{uuid.New().String()}
		for _, col := range grantColumns {
			args = append(args, cell(t, i, col))
		}
		args = append(args, org, recipientID, progID, stats.BatchID)

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO research_grants
			 (id, ref_number, latest_amendment_number, amendment_date, agreement_type,
			  agreement_number, agreement_value, foreign_currency_type, foreign_currency_value,
			  agreement_start_date, agreement_end_date, agreement_title_en, agreement_title_fr,
			  description_en, description_fr, expected_results_en, expected_results_fr,
			  year, amendments_history, org, recipient_id, prog_id, batch_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			args...,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: load: insert grant row %d", i)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: load: rows affected")
		}
		stats.Grants += n
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO load_history (id, loaded_at, rows, grants) VALUES (?, ?, ?, ?)`,
		stats.BatchID, time.Now().UTC(), stats.Rows, stats.Grants,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load: record batch")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load: commit")
	}
	return stats, nil
}

func (s *SQLiteStore) upsertRecipient(ctx context.Context, tx *sql.Tx, t *table.Table, row int, ids map[string]string, stats *LoadStats) (any, error) {
	key := recipientKey(t, row)
	if id, ok := ids[key]; ok {
		return id, nil
	}

	legal := cell(t, row, "recipient_legal_name")
	orgName := cell(t, row, "research_organization_name")
	country := cell(t, row, "recipient_country")
	city := cell(t, row, "recipient_city")

	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM recipients
		 WHERE legal_name IS ? AND research_organization_name IS ? AND country IS ? AND city IS ?`,
		legal, orgName, country, city,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recipients
			 (id, legal_name, research_organization_name, country, province, city,
			  postal_code, riding_name_en, riding_name_fr, riding_number)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, legal, orgName, country,
			cell(t, row, "recipient_province"), city,
			cell(t, row, "recipient_postal_code"),
			cell(t, row, "federal_riding_name_en"),
			cell(t, row, "federal_riding_name_fr"),
			cell(t, row, "federal_riding_number"),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: load: insert recipient row %d", row)
		}
		stats.Recipients++
	case err != nil:
		return nil, eris.Wrap(err, "sqlite: load: lookup recipient")
	}

	ids[key] = id
	return id, nil
}

func (s *SQLiteStore) upsertProgram(ctx context.Context, tx *sql.Tx, t *table.Table, row int, seen map[string]bool, stats *LoadStats) (any, error) {
	nameEN, ok := table.AsString(cell(t, row, "prog_name_en"))
	if !ok || nameEN == "" {
		return nil, nil
	}
	if seen[nameEN] {
		return nameEN, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO programs (prog_id, name_en, name_fr, purpose_en, purpose_fr)
		 VALUES (?, ?, ?, ?, ?)`,
		nameEN, nameEN,
		cell(t, row, "prog_name_fr"),
		cell(t, row, "prog_purpose_en"),
		cell(t, row, "prog_purpose_fr"),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load: insert program row %d", row)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		stats.Programs++
	}
	seen[nameEN] = true
	return nameEN, nil
}

func (s *SQLiteStore) upsertOrganization(ctx context.Context, tx *sql.Tx, t *table.Table, row int, seen map[string]bool, stats *LoadStats) (any, error) {
	org, ok := table.AsString(cell(t, row, "org"))
	if !ok || org == "" {
		return nil, nil
	}
	if seen[org] {
		return org, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO organizations (org, title) VALUES (?, ?)`,
		org, cell(t, row, "org_title"),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load: insert organization row %d", row)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		stats.Organizations++
	}
	seen[org] = true
	return org, nil
}
