package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/veldworks/enrich-cli/internal/model"
	"github.com/veldworks/enrich-cli/internal/resilience"
)

// HTTPConfig configures the HTTP research adapter.
type HTTPConfig struct {
	BaseURL     string                 `yaml:"base_url" mapstructure:"base_url"`
	Key         string                 `yaml:"key" mapstructure:"key"`
	TimeoutSecs int                    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64                `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Retry       resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// HTTPAdapter queries a JSON research API, rate-limited and retried. One
// lookup issues GET {base_url}/v1/organisations/lookup.
type HTTPAdapter struct {
	cfg     HTTPConfig
	http    *http.Client
	limiter *rate.Limiter
}

var _ Adapter = (*HTTPAdapter)(nil)

// NewHTTP creates an HTTP research adapter.
func NewHTTP(cfg HTTPConfig) *HTTPAdapter {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	return &HTTPAdapter{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// lookupResponse is the wire shape of a lookup result.
type lookupResponse struct {
	WebsiteURL         string   `json:"website_url"`
	ContactPerson      string   `json:"contact_person"`
	ContactPhone       string   `json:"contact_phone"`
	ContactEmail       string   `json:"contact_email"`
	Sources            []string `json:"sources"`
	Confidence         *int     `json:"confidence"`
	Notes              string   `json:"notes"`
	InvestigationNotes []string `json:"investigation_notes"`
	AlternateNames     []string `json:"alternate_names"`
	PhysicalAddress    string   `json:"physical_address"`
}

// Lookup fetches researched contact data for one organisation. Rate limiting
// happens before the first attempt and between retries.
func (a *HTTPAdapter) Lookup(ctx context.Context, name, province string) (model.Finding, error) {
	return resilience.DoVal(ctx, a.cfg.Retry, func(ctx context.Context) (model.Finding, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return model.Finding{}, eris.Wrap(err, "adapter: rate limit wait")
		}
		return a.lookup(ctx, name, province)
	})
}

func (a *HTTPAdapter) lookup(ctx context.Context, name, province string) (model.Finding, error) {
	q := url.Values{}
	q.Set("organisation", name)
	if province != "" {
		q.Set("province", province)
	}
	endpoint := fmt.Sprintf("%s/v1/organisations/lookup?%s", a.cfg.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Finding{}, eris.Wrap(err, "adapter: create request")
	}
	req.Header.Set("Accept", "application/json")
	if a.cfg.Key != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.Key)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return model.Finding{}, eris.Wrap(err, "adapter: lookup request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.Finding{}, eris.Wrap(err, "adapter: read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		// Unknown organisation is not a failure; there is just nothing to merge.
		return model.Finding{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("adapter: lookup returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return model.Finding{}, resilience.NewTransientError(err, resp.StatusCode)
		}
		return model.Finding{}, err
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return model.Finding{}, eris.Wrap(err, "adapter: decode response")
	}

	return model.Finding{
		WebsiteURL:         lr.WebsiteURL,
		ContactPerson:      lr.ContactPerson,
		ContactPhone:       lr.ContactPhone,
		ContactEmail:       lr.ContactEmail,
		Sources:            lr.Sources,
		Confidence:         lr.Confidence,
		Notes:              lr.Notes,
		InvestigationNotes: lr.InvestigationNotes,
		AlternateNames:     lr.AlternateNames,
		PhysicalAddress:    lr.PhysicalAddress,
	}, nil
}
