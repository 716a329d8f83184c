// Package store persists the append-only evidence, rollback, and sanity
// ledgers behind SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/veldworks/enrich-cli/internal/model"
)

// EvidenceFilter narrows ledger listings.
type EvidenceFilter struct {
	Organisation string `json:"organisation,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Ledger is the persistence interface for run artifacts. All Record methods
// are batched appends; the orchestrator calls each at most once per run.
type Ledger interface {
	RecordEvidence(ctx context.Context, entries []model.EvidenceRecord) error
	RecordRollbacks(ctx context.Context, actions []model.RollbackAction) error
	RecordSanityFindings(ctx context.Context, findings []model.SanityFinding) error
	RecordQualityIssues(ctx context.Context, issues []model.QualityIssue) error

	ListEvidence(ctx context.Context, filter EvidenceFilter) ([]model.EvidenceRecord, error)
	ListRollbacks(ctx context.Context, filter EvidenceFilter) ([]model.RollbackAction, error)

	Migrate(ctx context.Context) error
	Close() error
}
