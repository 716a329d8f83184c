package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// IssueMXUnavailable is reported when no MX resolver is configured. The row
// processor filters it out before treating an email as invalid.
const IssueMXUnavailable = "MX lookup unavailable"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validates and lowercases a contact email. orgDomain, when known, is
// compared against the address domain; a mismatch is reported as an issue but
// does not reject the address. A syntactically invalid address returns an
// empty value with issues.
func (d *Default) Email(raw, orgDomain string) (string, []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	lowered := strings.ToLower(trimmed)
	if !emailPattern.MatchString(lowered) {
		return "", []string{fmt.Sprintf("email %q is not a valid address", trimmed)}
	}

	var issues []string
	domain := lowered[strings.LastIndex(lowered, "@")+1:]

	if orgDomain != "" && domain != strings.ToLower(orgDomain) && !isFreeMailDomain(domain) {
		issues = append(issues, fmt.Sprintf("email domain %s does not match organisation domain %s", domain, orgDomain))
	}

	if d.LookupMX == nil {
		issues = append(issues, IssueMXUnavailable)
		return lowered, issues
	}

	hosts, err := d.LookupMX(domain)
	if err != nil || len(hosts) == 0 {
		issues = append(issues, fmt.Sprintf("email domain %s has no MX records", domain))
	}
	return lowered, issues
}

// isFreeMailDomain reports whether the domain is a common free-mail provider,
// where an organisation-domain mismatch is expected rather than suspicious.
func isFreeMailDomain(domain string) bool {
	switch domain {
	case "gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "icloud.com", "webmail.co.za", "mweb.co.za", "vodamail.co.za":
		return true
	}
	return false
}
