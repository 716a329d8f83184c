package normalize

import "github.com/veldworks/enrich-cli/internal/model"

// Status derives the curation status from what is known about a record after
// merging researched data. Compliance holds ("Do Not Contact") are never
// derived here; they are only ever set by hand and survive because the status
// column is not overwritten once set to that value.
func (d *Default) Status(hasWebsite, hasNamedContact bool, phoneIssues, emailIssues []string, hasMultipleSources bool) model.Status {
	if len(phoneIssues) > 0 || len(emailIssues) > 0 {
		return model.StatusNeedsReview
	}
	if hasWebsite && hasNamedContact && hasMultipleSources {
		return model.StatusVerified
	}
	if hasWebsite || hasNamedContact {
		return model.StatusCandidate
	}
	return model.StatusNeedsReview
}

// Confidence is the fallback confidence (0-100) used when a research finding
// supplies none, keyed off the derived status and penalized per open issue.
func (d *Default) Confidence(status model.Status, issueCount int) int {
	var base int
	switch status {
	case model.StatusVerified:
		base = 90
	case model.StatusCandidate:
		base = 70
	case model.StatusNeedsReview:
		base = 40
	case model.StatusDoNotContact:
		base = 0
	}
	conf := base - 5*issueCount
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}
	return conf
}
