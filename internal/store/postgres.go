package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/opengrants/triagency-cli/internal/db"
	"github.com/opengrants/triagency-cli/internal/table"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS recipients (
	id                         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	legal_name                 TEXT,
	research_organization_name TEXT,
	country                    TEXT,
	province                   TEXT,
	city                       TEXT,
	postal_code                TEXT,
	riding_name_en             TEXT,
	riding_name_fr             TEXT,
	riding_number              TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_recipients_identity
	ON recipients (legal_name, research_organization_name, country, city)
	NULLS NOT DISTINCT;

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
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	ref_number              TEXT NOT NULL,
	latest_amendment_number DOUBLE PRECISION,
	amendment_date          TEXT,
	agreement_type          TEXT,
	agreement_number        TEXT,
	agreement_value         DOUBLE PRECISION,
	foreign_currency_type   TEXT,
	foreign_currency_value  DOUBLE PRECISION,
	agreement_start_date    TEXT,
	agreement_end_date      TEXT,
	agreement_title_en      TEXT,
	agreement_title_fr      TEXT,
	description_en          TEXT,
	description_fr          TEXT,
	expected_results_en     TEXT,
	expected_results_fr     TEXT,
	year                    DOUBLE PRECISION,
	amendments_history      JSONB,
	org                     TEXT REFERENCES organizations(org),
	recipient_id            TEXT REFERENCES recipients(id),
	prog_id                 TEXT REFERENCES programs(prog_id),
	batch_id                TEXT,
	UNIQUE NULLS NOT DISTINCT (ref_number, recipient_id, prog_id)
);

CREATE TABLE IF NOT EXISTS load_history (
	id        TEXT PRIMARY KEY,
	loaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	rows      INTEGER NOT NULL,
	grants    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_grants_ref_number ON research_grants(ref_number);
CREATE INDEX IF NOT EXISTS idx_grants_recipient ON research_grants(recipient_id);
CREATE INDEX IF NOT EXISTS idx_grants_org ON research_grants(org);
CREATE INDEX IF NOT EXISTS idx_grants_year ON research_grants(year);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadGrants(ctx context.Context, t *table.Table) (*LoadStats, error) {
	if t == nil || t.Empty() {
		return nil, eris.New("postgres: load: empty table")
	}

	stats := &LoadStats{
		BatchID: uuid.New().String(),
		Rows:    t.NumRows(),
	}
	recipientIDs := make(map[string]string)
	seenPrograms := make(map[string]bool)
	seenOrgs := make(map[string]bool)

	grantRows := make([][]any, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		recipientID, err := s.upsertRecipient(ctx, t, i, recipientIDs, stats)
		if err != nil {
			return nil, err
		}
		progID, err := s.upsertProgram(ctx, t, i, seenPrograms, stats)
		if err != nil {
			return nil, err
		}
		org, err := s.upsertOrganization(ctx, t, i, seenOrgs, stats)
		if err != nil {
			return nil, err
		}

		row := make([]any, 0, len(grantColumns)+4)
		for _, col := range grantColumns {
			row = append(row, cell(t, i, col))
		}
		row = append(row, org, recipientID, progID, stats.BatchID)
		grantRows = append(grantRows, row)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "research_grants",
		Columns:      append(append([]string{}, grantColumns...), "org", "recipient_id", "prog_id", "batch_id"),
		ConflictKeys: []string{"ref_number", "recipient_id", "prog_id"},
	}, grantRows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load: upsert grants")
	}
	stats.Grants = n

	_, err = s.pool.Exec(ctx,
		`INSERT INTO load_history (id, loaded_at, rows, grants) VALUES ($1, $2, $3, $4)`,
		stats.BatchID, time.Now().UTC(), stats.Rows, stats.Grants,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load: record batch")
	}
	return stats, nil
}

func (s *PostgresStore) upsertRecipient(ctx context.Context, t *table.Table, row int, ids map[string]string, stats *LoadStats) (any, error) {
	key := recipientKey(t, row)
	if id, ok := ids[key]; ok {
		return id, nil
	}

	legal := cell(t, row, "recipient_legal_name")
	orgName := cell(t, row, "research_organization_name")
	country := cell(t, row, "recipient_country")
	city := cell(t, row, "recipient_city")

	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM recipients
		 WHERE legal_name IS NOT DISTINCT FROM $1
		   AND research_organization_name IS NOT DISTINCT FROM $2
		   AND country IS NOT DISTINCT FROM $3
		   AND city IS NOT DISTINCT FROM $4`,
		legal, orgName, country, city,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		id = uuid.New().String()
		_, err = s.pool.Exec(ctx,
			`INSERT INTO recipients
			 (id, legal_name, research_organization_name, country, province, city,
			  postal_code, riding_name_en, riding_name_fr, riding_number)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT DO NOTHING`,
			id, legal, orgName, country,
			cell(t, row, "recipient_province"), city,
			cell(t, row, "recipient_postal_code"),
			cell(t, row, "federal_riding_name_en"),
			cell(t, row, "federal_riding_name_fr"),
			cell(t, row, "federal_riding_number"),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: load: insert recipient row %d", row)
		}
		stats.Recipients++
	case err != nil:
		return nil, eris.Wrap(err, "postgres: load: lookup recipient")
	}

	ids[key] = id
	return id, nil
}

func (s *PostgresStore) upsertProgram(ctx context.Context, t *table.Table, row int, seen map[string]bool, stats *LoadStats) (any, error) {
	nameEN, ok := table.AsString(cell(t, row, "prog_name_en"))
	if !ok || nameEN == "" {
		return nil, nil
	}
	if seen[nameEN] {
		return nameEN, nil
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO programs (prog_id, name_en, name_fr, purpose_en, purpose_fr)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (prog_id) DO NOTHING`,
		nameEN, nameEN,
		cell(t, row, "prog_name_fr"),
		cell(t, row, "prog_purpose_en"),
		cell(t, row, "prog_purpose_fr"),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load: insert program row %d", row)
	}
	if tag.RowsAffected() > 0 {
		stats.Programs++
	}
	seen[nameEN] = true
	return nameEN, nil
}

func (s *PostgresStore) upsertOrganization(ctx context.Context, t *table.Table, row int, seen map[string]bool, stats *LoadStats) (any, error) {
	org, ok := table.AsString(cell(t, row, "org"))
	if !ok || org == "" {
		return nil, nil
	}
	if seen[org] {
		return org, nil
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO organizations (org, title) VALUES ($1, $2)
		 ON CONFLICT (org) DO NOTHING`,
		org, cell(t, row, "org_title"),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load: insert organization row %d", row)
	}
	if tag.RowsAffected() > 0 {
		stats.Organizations++
	}
	seen[org] = true
	return org, nil
}
