package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/veldworks/enrich-cli/internal/model"
)

// mockAdapter implements adapter.Adapter for testing. Findings are keyed by
// organisation name; delays and errors are optional per-name behaviors.
type mockAdapter struct {
	mu       sync.Mutex
	findings map[string]model.Finding
	errors   map[string]error
	delays   map[string]time.Duration

	// blockOnCtx names organisations whose lookup blocks until the context
	// is cancelled, used by cancellation tests.
	blockOnCtx map[string]bool

	// started is closed the first time a blocking lookup begins.
	started     chan struct{}
	startedOnce sync.Once

	calls []string
}

func (m *mockAdapter) Lookup(ctx context.Context, name, _ string) (model.Finding, error) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	delay := m.delays[name]
	block := m.blockOnCtx[name]
	err := m.errors[name]
	finding := m.findings[name]
	m.mu.Unlock()

	if block {
		if m.started != nil {
			m.startedOnce.Do(func() { close(m.started) })
		}
		<-ctx.Done()
		return model.Finding{}, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Finding{}, ctx.Err()
		}
	}
	if err != nil {
		return model.Finding{}, err
	}
	return finding, nil
}

func (m *mockAdapter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockSink implements EvidenceSink for testing.
type mockSink struct {
	mu      sync.Mutex
	batches [][]model.EvidenceRecord
	err     error
}

func (m *mockSink) RecordEvidence(_ context.Context, entries []model.EvidenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, entries)
	return nil
}

func (m *mockSink) recorded() []model.EvidenceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.EvidenceRecord
	for _, b := range m.batches {
		all = append(all, b...)
	}
	return all
}
