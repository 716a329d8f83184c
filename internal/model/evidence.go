package model

import "time"

// Severity classifies a quality finding.
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
)

// QualityFinding is one rule outcome from the quality gate. The gate is
// accumulating, so several findings may co-occur on a single row.
type QualityFinding struct {
	Code        string   `json:"code"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Remediation string   `json:"remediation,omitempty"`
}

// Blocking reports whether this finding prevents acceptance.
func (f QualityFinding) Blocking() bool {
	return f.Severity == SeverityBlock
}

// GateDecision is the quality gate verdict for one row's change set.
// Fallback is set iff Accepted is false.
type GateDecision struct {
	Accepted bool             `json:"accepted"`
	Findings []QualityFinding `json:"findings,omitempty"`
	Fallback *Record          `json:"fallback_record,omitempty"`
}

// EvidenceRecord is one audit-ledger entry: what changed on a row, backed by
// which sources, at what confidence. Exactly one is appended per row that had
// any attempted change, accepted or rejected.
type EvidenceRecord struct {
	RowID        int       `json:"row_id"`
	Organisation string    `json:"organisation"`
	Changes      string    `json:"changes"`
	Sources      []string  `json:"sources"`
	Notes        string    `json:"notes,omitempty"`
	Confidence   int       `json:"confidence"`
	Timestamp    time.Time `json:"timestamp"`
}

// RollbackAction describes how to undo a rejected change set. Columns are
// lexicographically sorted and PreviousValues keys always equal Columns.
type RollbackAction struct {
	RowID          int               `json:"row_id"`
	Organisation   string            `json:"organisation"`
	Columns        []string          `json:"columns"`
	PreviousValues map[string]string `json:"previous_values"`
	Reason         string            `json:"reason"`
}

// SanityFinding is an auto-remediation note emitted by the sanity checker or
// by whole-dataset duplicate detection. It never blocks acceptance.
type SanityFinding struct {
	RowID        int    `json:"row_id"`
	Organisation string `json:"organisation"`
	Issue        string `json:"issue"`
	Remediation  string `json:"remediation"`
}

// QualityIssue is a per-row quality gate finding flattened for the ledger.
type QualityIssue struct {
	RowID        int      `json:"row_id"`
	Organisation string   `json:"organisation"`
	Code         string   `json:"code"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Remediation  string   `json:"remediation,omitempty"`
}
