// Package enrich implements the row-level enrichment decision engine: source
// accounting, change tracking, sanity checks, the quality gate, the row
// processor, and the run orchestrator.
package enrich

import (
	"strings"

	"github.com/veldworks/enrich-cli/internal/model"
)

// PlaceholderSource is synthesized when a record has no sources at all, so
// every evidence entry names at least one source.
const PlaceholderSource = "internal://record"

// defaultOfficialKeywords marks sources from ZA government, regulator,
// education, and military domains as official.
var defaultOfficialKeywords = []string{
	".gov.za",
	"caa.co.za",
	".ac.za",
	".org.za",
	".mil.za",
}

// SourceStats is the evidence-quality summary for one row's merged sources.
type SourceStats struct {
	Total         int
	Fresh         int
	Official      int
	OfficialFresh int
}

// SourceAccountant deduplicates and classifies a row's evidence sources.
type SourceAccountant struct {
	canonical func(string) string
	keywords  []string
}

// NewSourceAccountant builds an accountant around a canonical-domain
// collaborator. An empty keyword list falls back to the ZA official set.
func NewSourceAccountant(canonicalDomain func(string) string, officialKeywords []string) *SourceAccountant {
	if len(officialKeywords) == 0 {
		officialKeywords = defaultOfficialKeywords
	}
	return &SourceAccountant{
		canonical: canonicalDomain,
		keywords:  officialKeywords,
	}
}

// MergeSources builds the candidate source list for a row: the original
// website first, then the finding's website when distinct, then the finding's
// sources, deduplicated by insertion order. An empty result is replaced with
// the placeholder source.
func MergeSources(originalWebsite string, finding model.Finding) []string {
	var merged []string
	seen := make(map[string]bool)

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		merged = append(merged, s)
	}

	add(originalWebsite)
	add(finding.WebsiteURL)
	for _, src := range finding.Sources {
		add(src)
	}

	if len(merged) == 0 {
		merged = []string{PlaceholderSource}
	}
	return merged
}

// Count walks the merged list once, counting each unique source (by canonical
// key) and classifying it as official and/or fresh relative to the record's
// original sources. Pure function of the two lists.
func (a *SourceAccountant) Count(originalSources, merged []string) SourceStats {
	originalKeys := make(map[string]bool, len(originalSources))
	for _, src := range originalSources {
		originalKeys[a.key(src)] = true
	}

	var stats SourceStats
	seen := make(map[string]bool, len(merged))
	for _, src := range merged {
		key := a.key(src)
		if seen[key] {
			continue
		}
		seen[key] = true

		stats.Total++
		official := a.isOfficial(src)
		fresh := !originalKeys[key]
		if official {
			stats.Official++
		}
		if fresh {
			stats.Fresh++
		}
		if official && fresh {
			stats.OfficialFresh++
		}
	}
	return stats
}

// key computes the canonical comparison key for a source: its canonical
// domain when one can be extracted, else the lowercased trimmed raw string.
func (a *SourceAccountant) key(source string) string {
	if domain := a.canonical(source); domain != "" {
		return domain
	}
	return strings.ToLower(strings.TrimSpace(source))
}

func (a *SourceAccountant) isOfficial(source string) bool {
	lowered := strings.ToLower(source)
	for _, kw := range a.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
