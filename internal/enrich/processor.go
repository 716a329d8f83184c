package enrich

import (
	"strings"
	"time"

	"github.com/veldworks/enrich-cli/internal/model"
	"github.com/veldworks/enrich-cli/internal/normalize"
)

// Processor transforms one (original record, research finding) pair into a
// finalized record plus every side-channel artifact: evidence, rollback,
// sanity findings, and quality issues. It performs no I/O and raises no
// errors; adapter failures are handled by the orchestrator.
type Processor struct {
	norm       normalize.Normalizer
	gate       *Gate
	accountant *SourceAccountant
	now        func() time.Time
}

// NewProcessor wires the decision engine around its collaborators.
func NewProcessor(norm normalize.Normalizer, gateCfg GateConfig, officialKeywords []string) *Processor {
	return &Processor{
		norm:       norm,
		gate:       NewGate(gateCfg, norm.CanonicalDomain),
		accountant: NewSourceAccountant(norm.CanonicalDomain, officialKeywords),
		now:        time.Now,
	}
}

// WithNow fixes the evidence timestamp clock. Used by tests and by the
// orchestrator to stamp a whole run consistently.
func (p *Processor) WithNow(now func() time.Time) *Processor {
	p.now = now
	return p
}

// RowResult is the complete outcome of processing one row.
type RowResult struct {
	RowID    int
	Original model.Record
	Final    model.Record
	Changes  model.ChangeSet

	// Updated is true only when the gate accepted a non-empty change set.
	Updated    bool
	Confidence int
	IssueCount int

	Decision       *model.GateDecision
	Evidence       *model.EvidenceRecord
	Rollback       *model.RollbackAction
	SanityFindings []model.SanityFinding
	QualityIssues  []model.QualityIssue
	ColumnsToClear []string
	Sources        []string
	Notes          []string
}

// Process runs the deterministic row algorithm: clone, normalize, merge,
// sanity-check, diff, gate, finalize.
func (p *Processor) Process(original model.Record, finding model.Finding, rowID int) RowResult {
	proposed := original.Clone()
	proposed.Province = p.norm.Province(proposed.Province)

	// Source accounting happens against the pre-sanity merged list; the only
	// "original" source is the record's own website.
	var originalSources []string
	if original.WebsiteURL != "" {
		originalSources = []string{original.WebsiteURL}
	}
	merged := MergeSources(original.WebsiteURL, finding)
	stats := p.accountant.Count(originalSources, merged)

	// Website precedence: the finding wins only when the record has none or
	// the canonical domains actually differ.
	if finding.WebsiteURL != "" {
		if proposed.WebsiteURL == "" ||
			p.norm.CanonicalDomain(proposed.WebsiteURL) != p.norm.CanonicalDomain(finding.WebsiteURL) {
			proposed.WebsiteURL = finding.WebsiteURL
		}
	}

	if proposed.ContactPerson == "" && finding.ContactPerson != "" {
		proposed.ContactPerson = strings.TrimSpace(finding.ContactPerson)
	}

	// Phone: researched value first, else whatever the record already holds.
	phoneCandidate := finding.ContactPhone
	if phoneCandidate == "" {
		phoneCandidate = proposed.ContactNumber
	}
	hadPhone := phoneCandidate != ""
	phone, phoneIssues := p.norm.Phone(phoneCandidate)
	if phone != "" {
		if phone != proposed.ContactNumber {
			proposed.ContactNumber = phone
		}
	} else if hadPhone {
		proposed.ContactNumber = ""
	}

	emailCandidate := finding.ContactEmail
	if emailCandidate == "" {
		emailCandidate = proposed.ContactEmail
	}
	hadEmail := emailCandidate != ""
	orgDomain := p.norm.CanonicalDomain(proposed.WebsiteURL)
	email, emailIssues := p.norm.Email(emailCandidate, orgDomain)
	if email != "" {
		if email != proposed.ContactEmail {
			proposed.ContactEmail = email
		}
	} else if hadEmail {
		proposed.ContactEmail = ""
	}

	// An unavailable MX lookup is an environment condition, not an email
	// problem, and must never mark the address invalid.
	filteredEmailIssues := filterIssues(emailIssues, normalize.IssueMXUnavailable)
	issueCount := len(phoneIssues) + len(filteredEmailIssues)

	// Compliance holds are sticky; the derived status never overrides one.
	if original.Status != model.StatusDoNotContact {
		proposed.Status = p.norm.Status(
			proposed.WebsiteURL != "",
			proposed.ContactPerson != "",
			phoneIssues,
			filteredEmailIssues,
			stats.Total >= 2,
		)
	}

	notes := make([]string, 0, len(finding.InvestigationNotes)+2)
	if finding.Notes != "" {
		notes = append(notes, finding.Notes)
	}
	notes = append(notes, finding.InvestigationNotes...)

	sanity := CheckSanity(SanityInput{
		RowID:       rowID,
		Record:      &proposed,
		Sources:     merged,
		Notes:       notes,
		PhoneIssues: phoneIssues,
		EmailIssues: filteredEmailIssues,
		HadPhone:    hadPhone,
		HadEmail:    hadEmail,
	})

	changes := Diff(original, proposed)

	result := RowResult{
		RowID:          rowID,
		Original:       original,
		Final:          proposed,
		Changes:        changes,
		IssueCount:     issueCount,
		SanityFindings: sanity.Findings,
		ColumnsToClear: sanity.ColumnsToClear,
		Sources:        sanity.Sources,
		Notes:          sanity.Notes,
	}

	if len(changes) == 0 {
		return result
	}

	decision := p.gate.Evaluate(GateInput{
		Original:    original,
		Proposed:    proposed,
		Changes:     changes,
		Stats:       stats,
		Confidence:  finding.Confidence,
		PhoneIssues: phoneIssues,
		EmailIssues: filteredEmailIssues,
	})
	result.Decision = &decision

	for _, f := range decision.Findings {
		result.QualityIssues = append(result.QualityIssues, model.QualityIssue{
			RowID:        rowID,
			Organisation: original.Name,
			Code:         f.Code,
			Severity:     f.Severity,
			Message:      f.Message,
			Remediation:  f.Remediation,
		})
	}

	if decision.Accepted {
		result.Updated = true
		if finding.Confidence != nil {
			result.Confidence = *finding.Confidence
		} else {
			result.Confidence = p.norm.Confidence(proposed.Status, issueCount)
		}
	} else {
		result.Final = *decision.Fallback
		result.Confidence = 0
		rollback := BuildRollback(rowID, original.Name, changes, decision.Findings)
		result.Rollback = &rollback
		// Rejected rows keep their cleared columns out of the commit.
		result.ColumnsToClear = nil
	}

	result.Evidence = &model.EvidenceRecord{
		RowID:        rowID,
		Organisation: original.Name,
		Changes:      Describe(rawFields(original), proposed),
		Sources:      sanity.Sources,
		Notes:        strings.Join(sanity.Notes, "; "),
		Confidence:   result.Confidence,
		Timestamp:    p.now().UTC(),
	}

	return result
}

// rawFields exposes the original record as the raw-row map Describe expects.
func rawFields(r model.Record) map[string]string {
	raw := make(map[string]string, len(model.RecordColumns))
	for _, col := range model.RecordColumns {
		raw[col] = r.Field(col)
	}
	return raw
}

func filterIssues(issues []string, drop string) []string {
	var out []string
	for _, issue := range issues {
		if issue != drop {
			out = append(out, issue)
		}
	}
	return out
}
