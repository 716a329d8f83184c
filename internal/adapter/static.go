package adapter

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/veldworks/enrich-cli/internal/model"
)

// Static serves findings from an in-memory fixture set, keyed by lowercased
// trimmed organisation name. Used for offline runs and tests; an unknown
// organisation yields an empty finding, not an error.
type Static struct {
	findings map[string]model.Finding
}

var _ Adapter = (*Static)(nil)

// NewStatic builds a fixture adapter from a name->finding map.
func NewStatic(findings map[string]model.Finding) *Static {
	byKey := make(map[string]model.Finding, len(findings))
	for name, f := range findings {
		byKey[nameKey(name)] = f
	}
	return &Static{findings: byKey}
}

// LoadStatic reads a JSON fixture file mapping organisation names to findings.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "adapter: read fixture file")
	}
	var findings map[string]model.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, eris.Wrap(err, "adapter: parse fixture file")
	}
	return NewStatic(findings), nil
}

// Lookup returns the fixture finding for the organisation, or an empty one.
func (s *Static) Lookup(_ context.Context, name, _ string) (model.Finding, error) {
	return s.findings[nameKey(name)], nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
