package enrich

import (
	"sort"
	"strings"

	"github.com/veldworks/enrich-cli/internal/model"
)

// describeColumns is the fixed ordered subset of columns used for
// human-readable change descriptions in the evidence ledger.
var describeColumns = []string{
	model.ColWebsiteURL,
	model.ColContactPerson,
	model.ColContactNumber,
	model.ColContactEmail,
	model.ColStatus,
	model.ColProvince,
}

// Diff compares two record snapshots column by column in the fixed field
// order and returns the set of columns whose values differ. Empty strings
// compare equal to each other, so Diff(r, r) is always empty.
func Diff(original, proposed model.Record) model.ChangeSet {
	changes := make(model.ChangeSet)
	for _, col := range model.RecordColumns {
		oldVal := original.Field(col)
		newVal := proposed.Field(col)
		if oldVal != newVal {
			changes[col] = model.Change{Old: oldVal, New: newVal}
		}
	}
	return changes
}

// Describe renders "Column -> newValue" for every display column whose new
// value is non-empty and differs from the raw original row, joined with "; ".
// Returns "No changes" when nothing differs.
func Describe(originalRaw map[string]string, record model.Record) string {
	var parts []string
	for _, col := range describeColumns {
		newVal := record.Field(col)
		if newVal == "" || newVal == originalRaw[col] {
			continue
		}
		parts = append(parts, col+" -> "+newVal)
	}
	if len(parts) == 0 {
		return "No changes"
	}
	return strings.Join(parts, "; ")
}

// BuildRollback turns a rejected change set and its gate findings into a
// rollback action: sorted columns, the old half of every change, and a reason
// assembled from the blocking messages plus any unique remediations.
func BuildRollback(rowID int, organisation string, changes model.ChangeSet, findings []model.QualityFinding) model.RollbackAction {
	columns := make([]string, 0, len(changes))
	previous := make(map[string]string, len(changes))
	for col, change := range changes {
		columns = append(columns, col)
		previous[col] = change.Old
	}
	sort.Strings(columns)

	var messages []string
	remediationSeen := make(map[string]bool)
	var remediations []string
	for _, f := range findings {
		if !f.Blocking() {
			continue
		}
		if f.Message != "" {
			messages = append(messages, f.Message)
		}
		if f.Remediation != "" && !remediationSeen[f.Remediation] {
			remediationSeen[f.Remediation] = true
			remediations = append(remediations, f.Remediation)
		}
	}

	reason := strings.Join(messages, "; ")
	if reason == "" {
		reason = "Quality gate rejection"
	}
	if len(remediations) > 0 {
		sort.Strings(remediations)
		reason += ". Remediation: " + strings.Join(remediations, "; ")
	}

	return model.RollbackAction{
		RowID:          rowID,
		Organisation:   organisation,
		Columns:        columns,
		PreviousValues: previous,
		Reason:         reason,
	}
}
