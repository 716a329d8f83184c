// Package normalize provides field-level canonicalization for organisation
// records: province names, ZA phone numbers, contact emails, and website
// domains, plus status and confidence derivation.
package normalize

import (
	"net/url"
	"strings"

	"github.com/veldworks/enrich-cli/internal/model"
)

// Normalizer is the collaborator surface the enrichment engine depends on.
// All methods are synchronous and must not perform network I/O; the default
// implementation reports "MX lookup unavailable" instead of resolving DNS
// unless an MX resolver is injected.
type Normalizer interface {
	Province(raw string) string
	Phone(raw string) (string, []string)
	Email(raw, orgDomain string) (string, []string)
	CanonicalDomain(rawURL string) string
	Status(hasWebsite, hasNamedContact bool, phoneIssues, emailIssues []string, hasMultipleSources bool) model.Status
	Confidence(status model.Status, issueCount int) int
}

// Default is the stock Normalizer. The zero value is ready to use.
type Default struct {
	// LookupMX, when set, resolves MX hosts for an email domain. When nil,
	// Email reports IssueMXUnavailable instead of failing the address.
	LookupMX func(domain string) ([]string, error)
}

var _ Normalizer = (*Default)(nil)

// provinceAliases maps lowercased free-text variants to canonical ZA
// province names.
var provinceAliases = map[string]string{
	"gauteng":       "Gauteng",
	"gp":            "Gauteng",
	"western cape":  "Western Cape",
	"wc":            "Western Cape",
	"eastern cape":  "Eastern Cape",
	"ec":            "Eastern Cape",
	"northern cape": "Northern Cape",
	"nc":            "Northern Cape",
	"free state":    "Free State",
	"freestate":     "Free State",
	"fs":            "Free State",
	"kwazulu-natal": "KwaZulu-Natal",
	"kwazulu natal": "KwaZulu-Natal",
	"kzn":           "KwaZulu-Natal",
	"natal":         "KwaZulu-Natal",
	"limpopo":       "Limpopo",
	"lp":            "Limpopo",
	"mpumalanga":    "Mpumalanga",
	"mp":            "Mpumalanga",
	"north west":    "North West",
	"north-west":    "North West",
	"nw":            "North West",
}

// Province maps free text to a canonical province name, or "Unknown".
func (d *Default) Province(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Trim(key, ".,;")
	if key == "" {
		return model.ProvinceUnknown
	}
	if canonical, ok := provinceAliases[key]; ok {
		return canonical
	}
	// Tolerate suffixes like "Gauteng Province" or "Province of Gauteng".
	key = strings.TrimSuffix(key, " province")
	key = strings.TrimPrefix(key, "province of ")
	if canonical, ok := provinceAliases[key]; ok {
		return canonical
	}
	return model.ProvinceUnknown
}

// Phone normalizes a ZA number to E.164 (+27...). The returned issue list is
// non-empty when the raw value fails validation, in which case the normalized
// value is empty.
func (d *Default) Phone(raw string) (string, []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	var digits strings.Builder
	hasPlus := strings.HasPrefix(trimmed, "+")
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == '+':
			// separator noise
		default:
			return "", []string{"phone contains invalid characters"}
		}
	}

	n := digits.String()
	switch {
	case hasPlus && strings.HasPrefix(n, "27") && len(n) == 11:
		return "+" + n, nil
	case strings.HasPrefix(n, "27") && len(n) == 11:
		return "+" + n, nil
	case strings.HasPrefix(n, "0") && len(n) == 10:
		return "+27" + n[1:], nil
	case len(n) == 9:
		// National number without trunk prefix.
		return "+27" + n, nil
	}
	return "", []string{"phone has invalid length for a ZA number"}
}

// CanonicalDomain reduces a URL or bare host to a comparable domain key:
// lowercased host with any www. prefix and port stripped. Returns empty when
// no host can be extracted.
func (d *Default) CanonicalDomain(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}
