package model

// Finding is the externally researched candidate data for one organisation,
// as returned by a research adapter lookup.
type Finding struct {
	WebsiteURL         string   `json:"website_url,omitempty"`
	ContactPerson      string   `json:"contact_person,omitempty"`
	ContactPhone       string   `json:"contact_phone,omitempty"`
	ContactEmail       string   `json:"contact_email,omitempty"`
	Sources            []string `json:"sources,omitempty"`
	Confidence         *int     `json:"confidence,omitempty"` // 0-100 when present
	Notes              string   `json:"notes,omitempty"`
	InvestigationNotes []string `json:"investigation_notes,omitempty"`
	AlternateNames     []string `json:"alternate_names,omitempty"`
	PhysicalAddress    string   `json:"physical_address,omitempty"`
}

// IsEmpty reports whether the finding carries no candidate data at all.
func (f Finding) IsEmpty() bool {
	return f.WebsiteURL == "" &&
		f.ContactPerson == "" &&
		f.ContactPhone == "" &&
		f.ContactEmail == "" &&
		len(f.Sources) == 0
}
