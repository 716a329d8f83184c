package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldworks/enrich-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteLedger {
	t.Helper()
	ledger, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	require.NoError(t, ledger.Migrate(context.Background()))
	return ledger
}

func TestSQLite_EvidenceRoundTrip(t *testing.T) {
	ledger := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	entries := []model.EvidenceRecord{
		{
			RowID:        0,
			Organisation: "Aero Flight School",
			Changes:      "Contact Person -> Jan Botha",
			Sources:      []string{"https://www.caa.co.za/ato/aero"},
			Notes:        "confirmed via registry",
			Confidence:   85,
			Timestamp:    now,
		},
		{
			RowID:        3,
			Organisation: "Blue Sky Aviation",
			Changes:      "Website URL -> https://bluesky-aviation.com",
			Sources:      []string{"https://blueskyaviation.co.za", "https://bluesky-aviation.com"},
			Confidence:   0,
			Timestamp:    now.Add(time.Minute),
		},
	}
	require.NoError(t, ledger.RecordEvidence(ctx, entries))

	got, err := ledger.ListEvidence(ctx, EvidenceFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "Blue Sky Aviation", got[0].Organisation)
	assert.Equal(t, "Aero Flight School", got[1].Organisation)
	assert.Equal(t, []string{"https://www.caa.co.za/ato/aero"}, got[1].Sources)
	assert.Equal(t, "confirmed via registry", got[1].Notes)
	assert.Equal(t, 85, got[1].Confidence)
	assert.WithinDuration(t, now, got[1].Timestamp, time.Second)
}

func TestSQLite_ListEvidenceFilters(t *testing.T) {
	ledger := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now().UTC()
	var entries []model.EvidenceRecord
	for i := 0; i < 5; i++ {
		org := "Aero Flight School"
		if i%2 == 1 {
			org = "Blue Sky Aviation"
		}
		entries = append(entries, model.EvidenceRecord{
			RowID:        i,
			Organisation: org,
			Changes:      "Status -> Candidate",
			Sources:      []string{"internal://record"},
			Timestamp:    now.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, ledger.RecordEvidence(ctx, entries))

	byOrg, err := ledger.ListEvidence(ctx, EvidenceFilter{Organisation: "Blue Sky Aviation"})
	require.NoError(t, err)
	require.Len(t, byOrg, 2)
	for _, e := range byOrg {
		assert.Equal(t, "Blue Sky Aviation", e.Organisation)
	}

	limited, err := ledger.ListEvidence(ctx, EvidenceFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestSQLite_RollbackRoundTrip(t *testing.T) {
	ledger := newTestSQLite(t)
	ctx := context.Background()

	actions := []model.RollbackAction{
		{
			RowID:        4,
			Organisation: "Blue Sky Aviation",
			Columns:      []string{"Website URL"},
			PreviousValues: map[string]string{
				"Website URL": "https://blueskyaviation.co.za",
			},
			Reason: "no official source supports the change",
		},
	}
	require.NoError(t, ledger.RecordRollbacks(ctx, actions))

	got, err := ledger.ListRollbacks(ctx, EvidenceFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].RowID)
	assert.Equal(t, []string{"Website URL"}, got[0].Columns)
	assert.Equal(t, "https://blueskyaviation.co.za", got[0].PreviousValues["Website URL"])
	assert.Equal(t, "no official source supports the change", got[0].Reason)
}

func TestSQLite_SanityAndQualityInserts(t *testing.T) {
	ledger := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordSanityFindings(ctx, []model.SanityFinding{
		{RowID: 1, Organisation: "Aero", Issue: "province_unknown", Remediation: "Confirm manually"},
	}))
	require.NoError(t, ledger.RecordQualityIssues(ctx, []model.QualityIssue{
		{RowID: 1, Organisation: "Aero", Code: "low_confidence", Severity: model.SeverityBlock, Message: "below minimum"},
	}))
}

func TestSQLite_EmptyBatchesAreNoOps(t *testing.T) {
	ledger := newTestSQLite(t)
	ctx := context.Background()

	assert.NoError(t, ledger.RecordEvidence(ctx, nil))
	assert.NoError(t, ledger.RecordRollbacks(ctx, nil))
	assert.NoError(t, ledger.RecordSanityFindings(ctx, nil))
	assert.NoError(t, ledger.RecordQualityIssues(ctx, nil))

	got, err := ledger.ListEvidence(ctx, EvidenceFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	ledger := newTestSQLite(t)
	assert.NoError(t, ledger.Migrate(context.Background()))
}
