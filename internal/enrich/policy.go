package enrich

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Policy is the optional gate policy file: threshold overrides plus the
// official-source keyword list. Absent fields keep their defaults.
type Policy struct {
	MinConfidence         *int     `yaml:"min_confidence"`
	RequireOfficialSource *bool    `yaml:"require_official_source"`
	OfficialKeywords      []string `yaml:"official_keywords"`
}

// LoadPolicy reads a gate policy from a YAML file. The file has a top-level
// "gate" key.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: read policy %s", path)
	}

	var wrapper struct {
		Gate Policy `yaml:"gate"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "enrich: parse policy")
	}
	return &wrapper.Gate, nil
}

// Apply merges the policy over a gate config, returning the effective config
// and the keyword list for source accounting.
func (p *Policy) Apply(cfg GateConfig) (GateConfig, []string) {
	if p == nil {
		return cfg, nil
	}
	if p.MinConfidence != nil {
		cfg.MinConfidence = *p.MinConfidence
	}
	if p.RequireOfficialSource != nil {
		cfg.RequireOfficialSource = *p.RequireOfficialSource
	}
	return cfg, p.OfficialKeywords
}
