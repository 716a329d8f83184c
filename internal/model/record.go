package model

// Status is the curation state of an organisation record.
type Status string

const (
	StatusVerified     Status = "Verified"
	StatusCandidate    Status = "Candidate"
	StatusNeedsReview  Status = "Needs Review"
	StatusDoNotContact Status = "Do Not Contact (Compliance)"
)

// ProvinceUnknown is the canonical value for an unresolvable province.
const ProvinceUnknown = "Unknown"

// Dataset column names. These match the headers of the curated CSV/XLSX
// exports, so they double as ChangeSet keys and ledger column references.
const (
	ColName          = "Name"
	ColProvince      = "Province"
	ColStatus        = "Status"
	ColWebsiteURL    = "Website URL"
	ColContactPerson = "Contact Person"
	ColContactNumber = "Contact Number"
	ColContactEmail  = "Contact Email Address"
)

// RecordColumns is the fixed field order used for diffing and display.
var RecordColumns = []string{
	ColName,
	ColProvince,
	ColStatus,
	ColWebsiteURL,
	ColContactPerson,
	ColContactNumber,
	ColContactEmail,
}

// Record is one organisation row. Two snapshots exist while a row is being
// enriched: the immutable original and the mutable proposed copy.
type Record struct {
	Name          string `json:"name"`
	Province      string `json:"province"`
	Status        Status `json:"status"`
	WebsiteURL    string `json:"website_url,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty"`
}

// Clone returns an independent copy. The proposed snapshot must never alias
// the original.
func (r Record) Clone() Record {
	return r
}

// Field returns the record value for a dataset column.
func (r Record) Field(column string) string {
	switch column {
	case ColName:
		return r.Name
	case ColProvince:
		return r.Province
	case ColStatus:
		return string(r.Status)
	case ColWebsiteURL:
		return r.WebsiteURL
	case ColContactPerson:
		return r.ContactPerson
	case ColContactNumber:
		return r.ContactNumber
	case ColContactEmail:
		return r.ContactEmail
	}
	return ""
}

// SetField writes the record value for a dataset column. Unknown columns are
// ignored.
func (r *Record) SetField(column, value string) {
	switch column {
	case ColName:
		r.Name = value
	case ColProvince:
		r.Province = value
	case ColStatus:
		r.Status = Status(value)
	case ColWebsiteURL:
		r.WebsiteURL = value
	case ColContactPerson:
		r.ContactPerson = value
	case ColContactNumber:
		r.ContactNumber = value
	case ColContactEmail:
		r.ContactEmail = value
	}
}

// Change holds the before/after values of a single column.
type Change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ChangeSet maps column name to its old/new pair. Only columns whose
// normalized string forms differ are present.
type ChangeSet map[string]Change
