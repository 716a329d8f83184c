package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldworks/enrich-cli/internal/dataset"
	"github.com/veldworks/enrich-cli/internal/model"
	"github.com/veldworks/enrich-cli/internal/normalize"
)

// newTestTable builds a dataset with the full required header. Each row is
// (name, province, status, website, person, number, email).
func newTestTable(rows ...[]string) *dataset.Table {
	return dataset.New(model.RecordColumns, rows)
}

func goodSources(suffix string) []string {
	return []string{
		"https://www.caa.co.za/ato/" + suffix,
		"https://aviationdirectory.co.za/" + suffix,
	}
}

func TestRun_MissingColumnsFailsBeforeProcessing(t *testing.T) {
	table := dataset.New(
		[]string{model.ColName, model.ColProvince, model.ColStatus},
		[][]string{{"Aero Flight School", "Gauteng", "Needs Review"}},
	)
	ad := &mockAdapter{}
	orch := NewOrchestrator(newTestProcessor(), ad, nil, OrchestratorConfig{})

	_, err := orch.Run(context.Background(), table)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrMissingColumns)
	assert.Contains(t, err.Error(), model.ColWebsiteURL)
	// Nothing was looked up.
	assert.Equal(t, 0, ad.callCount())
}

func TestRun_CommitsInRowOrderUnderConcurrency(t *testing.T) {
	const rows = 6

	var tableRows [][]string
	findings := make(map[string]model.Finding, rows)
	delays := make(map[string]time.Duration, rows)
	for i := 0; i < rows; i++ {
		name := fmt.Sprintf("School %d", i)
		tableRows = append(tableRows, []string{name, "Gauteng", "Needs Review", "", "", "", ""})
		findings[name] = model.Finding{
			ContactPerson: fmt.Sprintf("Person %d", i),
			Sources:       goodSources(fmt.Sprintf("school-%d", i)),
			Confidence:    intPtr(85),
		}
		// Earlier rows finish later, forcing out-of-order lookup completion.
		delays[name] = time.Duration(rows-i) * 10 * time.Millisecond
	}

	table := newTestTable(tableRows...)
	ad := &mockAdapter{findings: findings, delays: delays}
	sink := &mockSink{}
	orch := NewOrchestrator(newTestProcessor(), ad, sink, OrchestratorConfig{Concurrency: 4})

	result, err := orch.Run(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, rows, result.Metrics.RowsTotal)
	assert.Equal(t, rows, result.Metrics.ProcessedRows)
	assert.Equal(t, rows, result.Metrics.EnrichedRows)
	assert.Equal(t, 0, result.Metrics.AdapterFailures)

	// Ledger order follows row order regardless of completion order.
	require.Len(t, result.Evidence, rows)
	for i, e := range result.Evidence {
		assert.Equal(t, i, e.RowID)
	}

	for i := 0; i < rows; i++ {
		assert.Equal(t, fmt.Sprintf("Person %d", i), table.Get(i, model.ColContactPerson))
		assert.Equal(t, "Candidate", table.Get(i, model.ColStatus))
	}

	recorded := sink.recorded()
	require.Len(t, recorded, rows)
	for i, e := range recorded {
		assert.Equal(t, i, e.RowID)
	}
}

func TestRun_AdapterFailureIsRecoverable(t *testing.T) {
	table := newTestTable(
		[]string{"Broken School", "Gauteng", "Needs Review", "", "", "", ""},
		[]string{"Fine School", "Gauteng", "Needs Review", "", "", "", ""},
	)
	ad := &mockAdapter{
		findings: map[string]model.Finding{
			"Fine School": {
				ContactPerson: "Jan Botha",
				Sources:       goodSources("fine"),
				Confidence:    intPtr(90),
			},
		},
		errors: map[string]error{
			"Broken School": fmt.Errorf("upstream exploded"),
		},
	}
	orch := NewOrchestrator(newTestProcessor(), ad, nil, OrchestratorConfig{Concurrency: 2})

	result, err := orch.Run(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Metrics.ProcessedRows)
	assert.Equal(t, 1, result.Metrics.AdapterFailures)
	assert.Equal(t, 1, result.Metrics.EnrichedRows)

	// The failed row is untouched, the other committed normally.
	assert.Empty(t, table.Get(0, model.ColContactPerson))
	assert.Equal(t, "Jan Botha", table.Get(1, model.ColContactPerson))
}

func TestRun_CancellationSkipsPendingRows(t *testing.T) {
	table := newTestTable(
		[]string{"Fast A", "Gauteng", "Needs Review", "", "", "", ""},
		[]string{"Fast B", "Gauteng", "Needs Review", "", "", "", ""},
		[]string{"Slow C", "Gauteng", "Needs Review", "", "", "", ""},
		[]string{"Late D", "Gauteng", "Needs Review", "", "", "", ""},
	)

	started := make(chan struct{})
	ad := &mockAdapter{
		findings: map[string]model.Finding{
			"Fast A": {ContactPerson: "A Person", Sources: goodSources("a"), Confidence: intPtr(85)},
			"Fast B": {ContactPerson: "B Person", Sources: goodSources("b"), Confidence: intPtr(85)},
		},
		blockOnCtx: map[string]bool{"Slow C": true},
		started:    started,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	// Concurrency 1 guarantees the fast rows complete before the blocked one
	// starts.
	orch := NewOrchestrator(newTestProcessor(), ad, nil, OrchestratorConfig{Concurrency: 1})
	result, err := orch.Run(ctx, table)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Metrics.RowsTotal)
	assert.Equal(t, 2, result.Metrics.ProcessedRows)
	assert.Equal(t, 2, result.Metrics.EnrichedRows)

	// Completed rows were committed, cancelled rows left untouched.
	assert.Equal(t, "A Person", table.Get(0, model.ColContactPerson))
	assert.Equal(t, "B Person", table.Get(1, model.ColContactPerson))
	assert.Empty(t, table.Get(2, model.ColContactPerson))
	assert.Empty(t, table.Get(3, model.ColContactPerson))
	assert.Equal(t, "Needs Review", table.Get(2, model.ColStatus))
}

func TestRun_RejectionRestoresOriginalRow(t *testing.T) {
	table := newTestTable(
		[]string{"Blue Sky Aviation", "Western Cape", "Candidate", "https://blueskyaviation.co.za", "", "", ""},
	)
	ad := &mockAdapter{
		findings: map[string]model.Finding{
			"Blue Sky Aviation": {WebsiteURL: "https://bluesky-aviation.com"},
		},
	}
	sink := &mockSink{}
	orch := NewOrchestrator(newTestProcessor(), ad, sink, OrchestratorConfig{})

	result, err := orch.Run(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metrics.QualityRejections)
	assert.Equal(t, 0, result.Metrics.EnrichedRows)
	require.Len(t, result.Rollbacks, 1)
	assert.Equal(t, []string{model.ColWebsiteURL}, result.Rollbacks[0].Columns)

	// The dataset keeps the original website; only the status was demoted.
	assert.Equal(t, "https://blueskyaviation.co.za", table.Get(0, model.ColWebsiteURL))
	assert.Equal(t, "Needs Review", table.Get(0, model.ColStatus))

	// The attempted change is still on the evidence ledger, at confidence 0.
	recorded := sink.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, 0, recorded[0].Confidence)
}

func TestRun_DetectsDuplicateOrganisations(t *testing.T) {
	table := newTestTable(
		[]string{"Aero Flight School", "Gauteng", "Needs Review", "", "", "", ""},
		[]string{"Unique Aviation", "Gauteng", "Needs Review", "", "", "", ""},
		[]string{"  aero flight school ", "Limpopo", "Needs Review", "", "", "", ""},
	)
	orch := NewOrchestrator(newTestProcessor(), &mockAdapter{}, nil, OrchestratorConfig{})

	result, err := orch.Run(context.Background(), table)
	require.NoError(t, err)

	var dupes []model.SanityFinding
	for _, f := range result.SanityFindings {
		if f.Issue == IssueDuplicateOrg {
			dupes = append(dupes, f)
		}
	}
	require.Len(t, dupes, 2)
	assert.Equal(t, 0, dupes[0].RowID)
	assert.Equal(t, 2, dupes[1].RowID)
	assert.Contains(t, dupes[0].Remediation, "Aero Flight School")
}

func TestRun_ClearsInvalidColumnsOnCommit(t *testing.T) {
	table := newTestTable(
		[]string{"Aero Flight School", "Gauteng", "Candidate", "https://aeroflight.co.za", "Jan Botha", "not a number", ""},
	)
	orch := NewOrchestrator(newTestProcessor(), &mockAdapter{}, nil, OrchestratorConfig{})

	result, err := orch.Run(context.Background(), table)
	require.NoError(t, err)

	// The unparseable legacy number is blanked in the dataset itself.
	assert.Empty(t, table.Get(0, model.ColContactNumber))
	assert.Equal(t, 1, result.Metrics.SanityIssues)
	assert.Equal(t, 1, result.Metrics.IssuesFound)
}

func TestRun_SinkFailureDoesNotFailTheRun(t *testing.T) {
	table := newTestTable(
		[]string{"Aero Flight School", "Gauteng", "Needs Review", "", "", "", ""},
	)
	ad := &mockAdapter{
		findings: map[string]model.Finding{
			"Aero Flight School": {
				ContactPerson: "Jan Botha",
				Sources:       goodSources("aero"),
				Confidence:    intPtr(85),
			},
		},
	}
	sink := &mockSink{err: fmt.Errorf("ledger unavailable")}
	orch := NewOrchestrator(newTestProcessor(), ad, sink, OrchestratorConfig{})

	result, err := orch.Run(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Metrics.EnrichedRows)
	// The in-memory ledger is still complete for the caller.
	assert.Len(t, result.Evidence, 1)
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	orch := NewOrchestrator(
		NewProcessor(&normalize.Default{}, DefaultGateConfig(), nil),
		&mockAdapter{}, nil, OrchestratorConfig{},
	)
	assert.Equal(t, 4, orch.cfg.Concurrency)
	assert.Equal(t, 30, orch.cfg.LookupTimeoutSecs)
}
