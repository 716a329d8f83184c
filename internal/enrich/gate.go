package enrich

import (
	"fmt"
	"sort"
	"strings"

	"github.com/veldworks/enrich-cli/internal/model"
)

// Quality gate finding codes.
const (
	CodeInsufficientEvidence    = "insufficient_evidence"
	CodeNoFreshEvidence         = "no_fresh_evidence"
	CodeMissingOfficialSource   = "missing_official_source"
	CodeOfficialSourceNotFresh  = "official_source_not_fresh"
	CodeLowConfidence           = "low_confidence"
	CodeInvalidPhone            = "invalid_phone"
	CodeInvalidEmail            = "invalid_email"
	CodeWebsiteDomainUnverified = "website_domain_unverified"
	CodeConfidenceMissing       = "confidence_missing"
)

// highRiskColumns are the curated fields the gate guards against low-quality
// overwrites.
var highRiskColumns = []string{
	model.ColWebsiteURL,
	model.ColContactPerson,
	model.ColContactNumber,
	model.ColContactEmail,
}

// GateConfig controls the quality gate thresholds.
type GateConfig struct {
	MinConfidence         int  `yaml:"min_confidence" mapstructure:"min_confidence"`
	RequireOfficialSource bool `yaml:"require_official_source" mapstructure:"require_official_source"`
}

// DefaultGateConfig returns the stock gate thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinConfidence:         70,
		RequireOfficialSource: true,
	}
}

// Gate is the accept/reject decision engine for a row's change set.
type Gate struct {
	cfg       GateConfig
	canonical func(string) string
}

// NewGate builds a gate around a canonical-domain collaborator.
func NewGate(cfg GateConfig, canonicalDomain func(string) string) *Gate {
	return &Gate{cfg: cfg, canonical: canonicalDomain}
}

// GateInput is everything the gate needs to judge one row.
type GateInput struct {
	Original    model.Record
	Proposed    model.Record
	Changes     model.ChangeSet
	Stats       SourceStats
	Confidence  *int // adapter-supplied, 0-100, nil when absent
	PhoneIssues []string
	EmailIssues []string
}

// Evaluate runs every applicable rule and collects all findings before
// issuing a verdict; it never short-circuits on the first violation. On
// rejection the fallback record is a copy of the original with its status
// forced to "Needs Review".
func (g *Gate) Evaluate(in GateInput) model.GateDecision {
	var findings []model.QualityFinding
	meaningful := g.meaningfulHighRiskChange(in)

	if meaningful {
		findings = append(findings, g.evidenceFindings(in.Stats)...)

		if in.Confidence == nil {
			findings = append(findings, model.QualityFinding{
				Code:     CodeConfidenceMissing,
				Severity: model.SeverityWarn,
				Message:  "research finding supplied no confidence score",
			})
		} else if *in.Confidence < g.cfg.MinConfidence {
			findings = append(findings, model.QualityFinding{
				Code:        CodeLowConfidence,
				Severity:    model.SeverityBlock,
				Message:     fmt.Sprintf("research confidence %d is below the minimum of %d", *in.Confidence, g.cfg.MinConfidence),
				Remediation: "Re-run research or verify the change manually",
			})
		}
	}

	if _, changed := in.Changes[model.ColContactNumber]; changed && in.Proposed.ContactNumber != "" && len(in.PhoneIssues) > 0 {
		findings = append(findings, model.QualityFinding{
			Code:        CodeInvalidPhone,
			Severity:    model.SeverityBlock,
			Message:     "proposed contact number failed validation: " + strings.Join(in.PhoneIssues, "; "),
			Remediation: "Correct the contact number format",
		})
	}

	if _, changed := in.Changes[model.ColContactEmail]; changed && in.Proposed.ContactEmail != "" && len(in.EmailIssues) > 0 {
		findings = append(findings, model.QualityFinding{
			Code:        CodeInvalidEmail,
			Severity:    model.SeverityBlock,
			Message:     "proposed contact email failed validation: " + strings.Join(uniqueSorted(in.EmailIssues), "; "),
			Remediation: "Verify the contact email address",
		})
	}

	if change, changed := in.Changes[model.ColWebsiteURL]; changed {
		oldDomain := g.canonical(change.Old)
		newDomain := g.canonical(change.New)
		if oldDomain != "" && newDomain != "" && oldDomain != newDomain && in.Stats.Official == 0 {
			findings = append(findings, model.QualityFinding{
				Code:        CodeWebsiteDomainUnverified,
				Severity:    model.SeverityBlock,
				Message:     fmt.Sprintf("website domain would change from %s to %s without an official source", oldDomain, newDomain),
				Remediation: "Verify the new domain against an official source",
			})
		}
	}

	decision := model.GateDecision{Accepted: true, Findings: findings}
	for _, f := range findings {
		if f.Blocking() {
			decision.Accepted = false
			break
		}
	}

	if !decision.Accepted {
		fallback := in.Original.Clone()
		if fallback.Status != model.StatusNeedsReview {
			fallback.Status = model.StatusNeedsReview
		}
		decision.Fallback = &fallback
	}
	return decision
}

// evidenceFindings applies the source-count rules. missing_official_source
// and official_source_not_fresh are mutually exclusive.
func (g *Gate) evidenceFindings(stats SourceStats) []model.QualityFinding {
	var findings []model.QualityFinding

	if stats.Total < 2 {
		findings = append(findings, model.QualityFinding{
			Code:        CodeInsufficientEvidence,
			Severity:    model.SeverityBlock,
			Message:     fmt.Sprintf("only %d unique source(s) support the change; at least 2 required", stats.Total),
			Remediation: "Gather at least one additional independent source",
		})
	}

	if stats.Fresh == 0 {
		findings = append(findings, model.QualityFinding{
			Code:        CodeNoFreshEvidence,
			Severity:    model.SeverityBlock,
			Message:     "no sources beyond those already attached to the record",
			Remediation: "Find a source not already known to the record",
		})
	}

	if g.cfg.RequireOfficialSource {
		switch {
		case stats.Official == 0:
			findings = append(findings, model.QualityFinding{
				Code:        CodeMissingOfficialSource,
				Severity:    model.SeverityBlock,
				Message:     "no official source supports the change",
				Remediation: "Confirm the details against an official registry",
			})
		case stats.OfficialFresh == 0:
			findings = append(findings, model.QualityFinding{
				Code:        CodeOfficialSourceNotFresh,
				Severity:    model.SeverityBlock,
				Message:     "every official source was already attached to the record",
				Remediation: "Confirm the details against a new official source",
			})
		}
	}

	return findings
}

// meaningfulHighRiskChange reports whether the change set touches at least
// one high-risk column in a meaningful way: for the website, the canonical
// domain must actually differ; for contact fields, the new value must be
// non-empty.
func (g *Gate) meaningfulHighRiskChange(in GateInput) bool {
	for _, col := range highRiskColumns {
		change, ok := in.Changes[col]
		if !ok || change.New == "" {
			continue
		}
		if col == model.ColWebsiteURL {
			if g.canonical(change.Old) != g.canonical(change.New) {
				return true
			}
			continue
		}
		return true
	}
	return false
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
