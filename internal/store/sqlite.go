package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/veldworks/enrich-cli/internal/model"
)

// SQLiteLedger implements Ledger using modernc.org/sqlite.
type SQLiteLedger struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

// NewSQLite opens a SQLite ledger at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS evidence (
	id           TEXT PRIMARY KEY,
	row_id       INTEGER NOT NULL,
	organisation TEXT NOT NULL,
	changes      TEXT NOT NULL,
	sources      TEXT NOT NULL,
	notes        TEXT,
	confidence   INTEGER NOT NULL,
	recorded_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rollbacks (
	id              TEXT PRIMARY KEY,
	row_id          INTEGER NOT NULL,
	organisation    TEXT NOT NULL,
	columns         TEXT NOT NULL,
	previous_values TEXT NOT NULL,
	reason          TEXT NOT NULL,
	recorded_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sanity_findings (
	id           TEXT PRIMARY KEY,
	row_id       INTEGER NOT NULL,
	organisation TEXT NOT NULL,
	issue        TEXT NOT NULL,
	remediation  TEXT NOT NULL,
	recorded_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS quality_issues (
	id           TEXT PRIMARY KEY,
	row_id       INTEGER NOT NULL,
	organisation TEXT NOT NULL,
	code         TEXT NOT NULL,
	severity     TEXT NOT NULL,
	message      TEXT NOT NULL,
	remediation  TEXT,
	recorded_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evidence_organisation ON evidence(organisation);
CREATE INDEX IF NOT EXISTS idx_rollbacks_organisation ON rollbacks(organisation);
CREATE INDEX IF NOT EXISTS idx_quality_issues_code ON quality_issues(code);
`

func (s *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedger) RecordEvidence(ctx context.Context, entries []model.EvidenceRecord) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin evidence batch")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, e := range entries {
		sources, err := json.Marshal(e.Sources)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal sources")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evidence (id, row_id, organisation, changes, sources, notes, confidence, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), e.RowID, e.Organisation, e.Changes, string(sources), e.Notes, e.Confidence, e.Timestamp,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert evidence row %d", e.RowID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit evidence batch")
}

func (s *SQLiteLedger) RecordRollbacks(ctx context.Context, actions []model.RollbackAction) error {
	if len(actions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin rollback batch")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, a := range actions {
		columns, err := json.Marshal(a.Columns)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal columns")
		}
		previous, err := json.Marshal(a.PreviousValues)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal previous values")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rollbacks (id, row_id, organisation, columns, previous_values, reason)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), a.RowID, a.Organisation, string(columns), string(previous), a.Reason,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert rollback row %d", a.RowID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit rollback batch")
}

func (s *SQLiteLedger) RecordSanityFindings(ctx context.Context, findings []model.SanityFinding) error {
	if len(findings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin sanity batch")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, f := range findings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sanity_findings (id, row_id, organisation, issue, remediation)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), f.RowID, f.Organisation, f.Issue, f.Remediation,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert sanity finding row %d", f.RowID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit sanity batch")
}

func (s *SQLiteLedger) RecordQualityIssues(ctx context.Context, issues []model.QualityIssue) error {
	if len(issues) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin quality batch")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range issues {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quality_issues (id, row_id, organisation, code, severity, message, remediation)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), q.RowID, q.Organisation, q.Code, string(q.Severity), q.Message, q.Remediation,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert quality issue row %d", q.RowID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit quality batch")
}

func (s *SQLiteLedger) ListEvidence(ctx context.Context, filter EvidenceFilter) ([]model.EvidenceRecord, error) {
	query := `SELECT row_id, organisation, changes, sources, notes, confidence, recorded_at FROM evidence`
	var args []any
	if filter.Organisation != "" {
		query += ` WHERE organisation = ?`
		args = append(args, filter.Organisation)
	}
	query += ` ORDER BY recorded_at DESC, row_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evidence")
	}
	defer rows.Close()

	var entries []model.EvidenceRecord
	for rows.Next() {
		var e model.EvidenceRecord
		var sources string
		var notes sql.NullString
		var recordedAt time.Time
		if err := rows.Scan(&e.RowID, &e.Organisation, &e.Changes, &sources, &notes, &e.Confidence, &recordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence")
		}
		if err := json.Unmarshal([]byte(sources), &e.Sources); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sources")
		}
		e.Notes = notes.String
		e.Timestamp = recordedAt
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate evidence")
}

func (s *SQLiteLedger) ListRollbacks(ctx context.Context, filter EvidenceFilter) ([]model.RollbackAction, error) {
	query := `SELECT row_id, organisation, columns, previous_values, reason FROM rollbacks`
	var args []any
	if filter.Organisation != "" {
		query += ` WHERE organisation = ?`
		args = append(args, filter.Organisation)
	}
	query += ` ORDER BY recorded_at DESC, row_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rollbacks")
	}
	defer rows.Close()

	var actions []model.RollbackAction
	for rows.Next() {
		var a model.RollbackAction
		var columns, previous string
		if err := rows.Scan(&a.RowID, &a.Organisation, &columns, &previous, &a.Reason); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rollback")
		}
		if err := json.Unmarshal([]byte(columns), &a.Columns); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal columns")
		}
		if err := json.Unmarshal([]byte(previous), &a.PreviousValues); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal previous values")
		}
		actions = append(actions, a)
	}
	return actions, eris.Wrap(rows.Err(), "sqlite: iterate rollbacks")
}
