package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/veldworks/enrich-cli/internal/adapter"
	"github.com/veldworks/enrich-cli/internal/dataset"
	"github.com/veldworks/enrich-cli/internal/model"
)

// requiredColumns must all be present before a run may start.
var requiredColumns = []string{
	model.ColName,
	model.ColProvince,
	model.ColStatus,
	model.ColWebsiteURL,
	model.ColContactPerson,
	model.ColContactNumber,
	model.ColContactEmail,
}

// EvidenceSink persists the evidence ledger, called once per run with the
// full batch.
type EvidenceSink interface {
	RecordEvidence(ctx context.Context, entries []model.EvidenceRecord) error
}

// OrchestratorConfig tunes the run loop.
type OrchestratorConfig struct {
	// Concurrency bounds concurrent adapter lookups. Default 4.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// LookupTimeoutSecs bounds a single adapter lookup. Default 30.
	LookupTimeoutSecs int `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
}

// Orchestrator drives the row processor across a whole dataset: concurrent
// adapter lookups, strictly ordered commits, duplicate detection, and metric
// aggregation. It is the only writer of the dataset and the only owner of the
// evidence, rollback, and sanity ledgers.
type Orchestrator struct {
	proc    *Processor
	adapter adapter.Adapter
	sink    EvidenceSink
	cfg     OrchestratorConfig
}

// NewOrchestrator wires the run loop. sink may be nil for dry runs.
func NewOrchestrator(proc *Processor, a adapter.Adapter, sink EvidenceSink, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LookupTimeoutSecs <= 0 {
		cfg.LookupTimeoutSecs = 30
	}
	return &Orchestrator{proc: proc, adapter: a, sink: sink, cfg: cfg}
}

// RunResult carries the full ledgers and metrics of one run. It is complete
// even for cancelled partial runs.
type RunResult struct {
	Metrics        model.PipelineMetrics
	Evidence       []model.EvidenceRecord
	Rollbacks      []model.RollbackAction
	SanityFindings []model.SanityFinding
	QualityIssues  []model.QualityIssue
}

// rowOutcome pairs a processed row with its lookup bookkeeping. Skipped rows
// were cancelled before their lookup completed and are never committed.
type rowOutcome struct {
	rowID         int
	skipped       bool
	adapterFailed bool
	result        RowResult
}

// Run processes every row of the table in original order. Only the adapter
// lookup runs concurrently; dataset writes and ledger appends are serialized
// through an in-order drain on this goroutine. Cancellation stops new
// lookups; rows already researched are still committed.
func (o *Orchestrator) Run(ctx context.Context, table *dataset.Table) (*RunResult, error) {
	if err := table.Require(requiredColumns...); err != nil {
		return nil, err
	}

	rowCount := table.RowCount()
	log := zap.L().With(zap.Int("rows", rowCount))
	log.Info("enrich: starting run", zap.Int("concurrency", o.cfg.Concurrency))

	originals := make([]model.Record, rowCount)
	for i := 0; i < rowCount; i++ {
		originals[i] = recordAt(table, i)
	}

	outcomes := make(chan rowOutcome, o.cfg.Concurrency)

	g := &errgroup.Group{}
	g.SetLimit(o.cfg.Concurrency)
	go func() {
		for i := 0; i < rowCount; i++ {
			i := i
			g.Go(func() error {
				outcomes <- o.processRow(ctx, originals[i], i)
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	result := &RunResult{Metrics: model.PipelineMetrics{RowsTotal: rowCount}}

	// Drain strictly in row-index order so the dataset and every ledger are
	// deterministic regardless of lookup completion order.
	pending := make(map[int]rowOutcome)
	next := 0
	for out := range outcomes {
		if out.rowID < next {
			panic(fmt.Sprintf("enrich: out-of-order commit for row %d (next expected %d)", out.rowID, next))
		}
		if _, dup := pending[out.rowID]; dup {
			panic(fmt.Sprintf("enrich: duplicate outcome for row %d", out.rowID))
		}
		pending[out.rowID] = out
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			o.commit(table, ready, result)
			next++
		}
	}
	if len(pending) > 0 {
		panic(fmt.Sprintf("enrich: %d uncommitted row outcomes after drain", len(pending)))
	}

	o.detectDuplicates(table, result)

	if o.sink != nil && len(result.Evidence) > 0 {
		if err := o.sink.RecordEvidence(ctx, result.Evidence); err != nil {
			log.Warn("enrich: failed to persist evidence ledger", zap.Error(err))
		}
	}

	log.Info("enrich: run complete",
		zap.Int("processed", result.Metrics.ProcessedRows),
		zap.Int("enriched", result.Metrics.EnrichedRows),
		zap.Int("rejections", result.Metrics.QualityRejections),
		zap.Int("adapter_failures", result.Metrics.AdapterFailures),
	)
	return result, nil
}

// processRow runs the lookup (the only blocking step) and then the pure row
// algorithm. An adapter failure substitutes an empty finding carrying an
// explanatory note; a run-level cancellation marks the row skipped.
func (o *Orchestrator) processRow(ctx context.Context, original model.Record, rowID int) rowOutcome {
	if ctx.Err() != nil {
		return rowOutcome{rowID: rowID, skipped: true}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.LookupTimeoutSecs)*time.Second)
	defer cancel()

	finding, err := o.adapter.Lookup(lookupCtx, original.Name, original.Province)
	out := rowOutcome{rowID: rowID}
	if err != nil {
		if ctx.Err() != nil {
			// The run was cancelled, not the lookup itself.
			out.skipped = true
			return out
		}
		out.adapterFailed = true
		zap.L().Warn("enrich: research lookup failed",
			zap.Int("row", rowID),
			zap.String("organisation", original.Name),
			zap.Error(err),
		)
		finding = model.Finding{Notes: "research lookup failed: " + err.Error()}
	}

	out.result = o.proc.Process(original, finding, rowID)
	return out
}

// commit applies one finalized row to the dataset and appends its artifacts
// to the ledgers. Runs only on the drain goroutine, in row order.
func (o *Orchestrator) commit(table *dataset.Table, out rowOutcome, result *RunResult) {
	if out.skipped {
		return
	}

	m := &result.Metrics
	m.ProcessedRows++
	if out.adapterFailed {
		m.AdapterFailures++
	}

	res := out.result
	for _, col := range model.RecordColumns {
		if v := res.Final.Field(col); v != "" {
			table.Set(res.RowID, col, v)
		}
	}
	for _, col := range res.ColumnsToClear {
		table.Set(res.RowID, col, "")
	}

	if res.Evidence != nil {
		result.Evidence = append(result.Evidence, *res.Evidence)
	}
	if res.Rollback != nil {
		result.Rollbacks = append(result.Rollbacks, *res.Rollback)
		m.QualityRejections++
	}
	result.SanityFindings = append(result.SanityFindings, res.SanityFindings...)
	result.QualityIssues = append(result.QualityIssues, res.QualityIssues...)

	m.SanityIssues += len(res.SanityFindings)
	m.QualityIssues += len(res.QualityIssues)
	m.IssuesFound += res.IssueCount
	if res.Updated {
		m.EnrichedRows++
	}
	if res.Final.Status == model.StatusVerified {
		m.VerifiedRows++
	}
}

// detectDuplicates scans the whole dataset for organisation names occurring
// more than once (case-insensitive, trimmed) and emits one finding per
// affected row, in row order.
func (o *Orchestrator) detectDuplicates(table *dataset.Table, result *RunResult) {
	counts := make(map[string]int)
	for i := 0; i < table.RowCount(); i++ {
		key := strings.ToLower(strings.TrimSpace(table.Get(i, model.ColName)))
		if key != "" {
			counts[key]++
		}
	}

	title := cases.Title(language.English)
	for i := 0; i < table.RowCount(); i++ {
		name := strings.TrimSpace(table.Get(i, model.ColName))
		key := strings.ToLower(name)
		if key == "" || counts[key] < 2 {
			continue
		}
		result.SanityFindings = append(result.SanityFindings, model.SanityFinding{
			RowID:        i,
			Organisation: name,
			Issue:        IssueDuplicateOrg,
			Remediation:  fmt.Sprintf("Review duplicate entries for %s and merge or remove extras", title.String(key)),
		})
		result.Metrics.SanityIssues++
	}
}

// recordAt reads one row of the dataset into a record snapshot.
func recordAt(table *dataset.Table, row int) model.Record {
	var r model.Record
	for _, col := range model.RecordColumns {
		r.SetField(col, strings.TrimSpace(table.Get(row, col)))
	}
	return r
}
