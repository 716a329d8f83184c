package enrich

import (
	"strings"

	"github.com/veldworks/enrich-cli/internal/model"
)

// Sanity issue codes.
const (
	IssueWebsiteMissingScheme = "website_url_missing_scheme"
	IssueContactNumberInvalid = "contact_number_invalid"
	IssueContactEmailInvalid  = "contact_email_invalid"
	IssueProvinceUnknown      = "province_unknown"
	IssueDuplicateOrg         = "duplicate_organisation"
)

// SanityInput is the per-row state the sanity checks operate on. Record is
// the merged proposed snapshot and is mutated in place.
type SanityInput struct {
	RowID   int
	Record  *model.Record
	Sources []string
	Notes   []string

	// Validation state from the normalization step.
	PhoneIssues []string
	EmailIssues []string
	HadPhone    bool // a non-empty phone candidate existed before normalization
	HadEmail    bool
}

// SanityResult carries the updated row state plus the emitted findings and
// the dataset columns that must be blanked on commit.
type SanityResult struct {
	Notes          []string
	Findings       []model.SanityFinding
	Sources        []string
	ColumnsToClear []string
}

// CheckSanity runs the ordered auto-remediation pass over a merged proposed
// record. Each check mutates state consumed by the next, so the order is
// load-bearing: scheme repair first, then phone and email clearing, then the
// informational province check.
func CheckSanity(in SanityInput) SanityResult {
	out := SanityResult{
		Notes:   in.Notes,
		Sources: in.Sources,
	}
	rec := in.Record
	org := rec.Name

	// 1. Repair a website URL that lacks a scheme, and keep the source list
	// consistent with the rewritten value.
	if rec.WebsiteURL != "" && !strings.Contains(rec.WebsiteURL, "://") {
		repaired := "https://" + strings.TrimSpace(rec.WebsiteURL)
		for i, src := range out.Sources {
			if src == rec.WebsiteURL {
				out.Sources[i] = repaired
			}
		}
		rec.WebsiteURL = repaired
		out.Notes = append(out.Notes, "added https scheme to website URL")
		out.Findings = append(out.Findings, model.SanityFinding{
			RowID:        in.RowID,
			Organisation: org,
			Issue:        IssueWebsiteMissingScheme,
			Remediation:  "Rewrote website URL as " + repaired,
		})
	}

	// 2. A phone candidate existed but the normalizer rejected it: clear the
	// field and instruct the committer to blank the dataset column.
	if in.HadPhone && rec.ContactNumber == "" && len(in.PhoneIssues) > 0 {
		rec.ContactNumber = ""
		out.ColumnsToClear = append(out.ColumnsToClear, model.ColContactNumber)
		out.Notes = append(out.Notes, "cleared invalid contact number")
		out.Findings = append(out.Findings, model.SanityFinding{
			RowID:        in.RowID,
			Organisation: org,
			Issue:        IssueContactNumberInvalid,
			Remediation:  "Cleared contact number: " + strings.Join(in.PhoneIssues, "; "),
		})
	}

	// 3. Same pattern for the contact email.
	if in.HadEmail && rec.ContactEmail == "" && len(in.EmailIssues) > 0 {
		rec.ContactEmail = ""
		out.ColumnsToClear = append(out.ColumnsToClear, model.ColContactEmail)
		out.Notes = append(out.Notes, "cleared invalid contact email")
		out.Findings = append(out.Findings, model.SanityFinding{
			RowID:        in.RowID,
			Organisation: org,
			Issue:        IssueContactEmailInvalid,
			Remediation:  "Cleared contact email: " + strings.Join(in.EmailIssues, "; "),
		})
	}

	// 4. Informational only; does not mutate the record.
	if rec.Province == model.ProvinceUnknown {
		out.Findings = append(out.Findings, model.SanityFinding{
			RowID:        in.RowID,
			Organisation: org,
			Issue:        IssueProvinceUnknown,
			Remediation:  "Confirm the province for this organisation manually",
		})
	}

	return out
}
