package enrich

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPolicy(t *testing.T) {
	path := writePolicyFile(t, `
gate:
  min_confidence: 80
  require_official_source: false
  official_keywords:
    - .gov.za
    - caa.co.za
`)

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	require.NotNil(t, policy.MinConfidence)
	assert.Equal(t, 80, *policy.MinConfidence)
	require.NotNil(t, policy.RequireOfficialSource)
	assert.False(t, *policy.RequireOfficialSource)
	assert.Equal(t, []string{".gov.za", "caa.co.za"}, policy.OfficialKeywords)
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPolicy_InvalidYAML(t *testing.T) {
	path := writePolicyFile(t, "gate: [not a map")
	_, err := LoadPolicy(path)
	assert.Error(t, err)
}

func TestPolicyApply(t *testing.T) {
	min := 90
	policy := &Policy{MinConfidence: &min, OfficialKeywords: []string{".mil.za"}}

	cfg, keywords := policy.Apply(DefaultGateConfig())
	assert.Equal(t, 90, cfg.MinConfidence)
	// Unset fields keep their defaults.
	assert.True(t, cfg.RequireOfficialSource)
	assert.Equal(t, []string{".mil.za"}, keywords)
}

func TestPolicyApply_EmptyPolicyKeepsDefaults(t *testing.T) {
	cfg, keywords := (&Policy{}).Apply(DefaultGateConfig())
	assert.Equal(t, DefaultGateConfig(), cfg)
	assert.Empty(t, keywords)
}

func TestPolicyApply_NilPolicy(t *testing.T) {
	var policy *Policy
	cfg, keywords := policy.Apply(DefaultGateConfig())
	assert.Equal(t, DefaultGateConfig(), cfg)
	assert.Nil(t, keywords)
}
