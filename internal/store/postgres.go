package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/veldworks/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the ledger needs. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresLedger implements Ledger using a pgx connection pool.
type PostgresLedger struct {
	pool Pool
}

var _ Ledger = (*PostgresLedger)(nil)

// NewPostgres creates a PostgresLedger with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresLedger{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS evidence (
	id           UUID PRIMARY KEY,
	row_id       INTEGER NOT NULL,
	organisation TEXT NOT NULL,
	changes      TEXT NOT NULL,
	sources      JSONB NOT NULL,
	notes        TEXT,
	confidence   INTEGER NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rollbacks (
	id              UUID PRIMARY KEY,
	row_id          INTEGER NOT NULL,
	organisation    TEXT NOT NULL,
	columns         JSONB NOT NULL,
	previous_values JSONB NOT NULL,
	reason          TEXT NOT NULL,
	recorded_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sanity_findings (
	id           UUID PRIMARY KEY,
	row_id       INTEGER NOT NULL,
	organisation TEXT NOT NULL,
	issue        TEXT NOT NULL,
	remediation  TEXT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS quality_issues (
	id           UUID PRIMARY KEY,
	row_id       INTEGER NOT NULL,
	organisation TEXT NOT NULL,
	code         TEXT NOT NULL,
	severity     TEXT NOT NULL,
	message      TEXT NOT NULL,
	remediation  TEXT,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evidence_organisation ON evidence(organisation);
CREATE INDEX IF NOT EXISTS idx_rollbacks_organisation ON rollbacks(organisation);
CREATE INDEX IF NOT EXISTS idx_quality_issues_code ON quality_issues(code);
`

func (s *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresLedger) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresLedger) RecordEvidence(ctx context.Context, entries []model.EvidenceRecord) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin evidence batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, e := range entries {
		sources, err := json.Marshal(e.Sources)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal sources")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO evidence (id, row_id, organisation, changes, sources, notes, confidence, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), e.RowID, e.Organisation, e.Changes, sources, e.Notes, e.Confidence, e.Timestamp,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert evidence row %d", e.RowID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit evidence batch")
}

func (s *PostgresLedger) RecordRollbacks(ctx context.Context, actions []model.RollbackAction) error {
	if len(actions) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin rollback batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, a := range actions {
		columns, err := json.Marshal(a.Columns)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal columns")
		}
		previous, err := json.Marshal(a.PreviousValues)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal previous values")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rollbacks (id, row_id, organisation, columns, previous_values, reason)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), a.RowID, a.Organisation, columns, previous, a.Reason,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert rollback row %d", a.RowID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit rollback batch")
}

func (s *PostgresLedger) RecordSanityFindings(ctx context.Context, findings []model.SanityFinding) error {
	if len(findings) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin sanity batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, f := range findings {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sanity_findings (id, row_id, organisation, issue, remediation)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), f.RowID, f.Organisation, f.Issue, f.Remediation,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert sanity finding row %d", f.RowID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit sanity batch")
}

func (s *PostgresLedger) RecordQualityIssues(ctx context.Context, issues []model.QualityIssue) error {
	if len(issues) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin quality batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, q := range issues {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quality_issues (id, row_id, organisation, code, severity, message, remediation)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), q.RowID, q.Organisation, q.Code, string(q.Severity), q.Message, q.Remediation,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert quality issue row %d", q.RowID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit quality batch")
}

func (s *PostgresLedger) ListEvidence(ctx context.Context, filter EvidenceFilter) ([]model.EvidenceRecord, error) {
	query := `SELECT row_id, organisation, changes, sources, notes, confidence, recorded_at FROM evidence`
	var args []any
	if filter.Organisation != "" {
		query += ` WHERE organisation = $1`
		args = append(args, filter.Organisation)
	}
	query += ` ORDER BY recorded_at DESC, row_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + placeholder(len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence")
	}
	defer rows.Close()

	var entries []model.EvidenceRecord
	for rows.Next() {
		var e model.EvidenceRecord
		var sources []byte
		var notes *string
		if err := rows.Scan(&e.RowID, &e.Organisation, &e.Changes, &sources, &notes, &e.Confidence, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence")
		}
		if err := json.Unmarshal(sources, &e.Sources); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal sources")
		}
		if notes != nil {
			e.Notes = *notes
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate evidence")
}

func (s *PostgresLedger) ListRollbacks(ctx context.Context, filter EvidenceFilter) ([]model.RollbackAction, error) {
	query := `SELECT row_id, organisation, columns, previous_values, reason FROM rollbacks`
	var args []any
	if filter.Organisation != "" {
		query += ` WHERE organisation = $1`
		args = append(args, filter.Organisation)
	}
	query += ` ORDER BY recorded_at DESC, row_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + placeholder(len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rollbacks")
	}
	defer rows.Close()

	var actions []model.RollbackAction
	for rows.Next() {
		var a model.RollbackAction
		var columns, previous []byte
		if err := rows.Scan(&a.RowID, &a.Organisation, &columns, &previous, &a.Reason); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rollback")
		}
		if err := json.Unmarshal(columns, &a.Columns); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal columns")
		}
		if err := json.Unmarshal(previous, &a.PreviousValues); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal previous values")
		}
		actions = append(actions, a)
	}
	return actions, eris.Wrap(rows.Err(), "postgres: iterate rollbacks")
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
