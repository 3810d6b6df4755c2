// ==============================================================================
// BANK DIRECTORY PROVIDERS - internal/bankdir/providers.go
// ==============================================================================
package bankdir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"payreq/internal/domain"
	"payreq/pkg/errors"
)

// HTTPDirectoryProvider queries the external bank identifier directory over
// its swift-lookup and iban-lookup endpoints.
type HTTPDirectoryProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDirectoryProvider constructs a provider against the given base URL.
func NewHTTPDirectoryProvider(baseURL string, timeout time.Duration) *HTTPDirectoryProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDirectoryProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPDirectoryProvider) Name() string {
	return "BankDirectory"
}

// LookupSwift queries GET {base}/swift-lookup?code=...
func (p *HTTPDirectoryProvider) LookupSwift(ctx context.Context, code string) (*domain.BankInfo, error) {
	endpoint := fmt.Sprintf("%s/swift-lookup?code=%s", p.baseURL, url.QueryEscape(code))
	return p.fetch(ctx, endpoint)
}

// LookupIBAN queries GET {base}/iban-lookup?iban=...
func (p *HTTPDirectoryProvider) LookupIBAN(ctx context.Context, iban string) (*domain.BankInfo, error) {
	endpoint := fmt.Sprintf("%s/iban-lookup?iban=%s", p.baseURL, url.QueryEscape(iban))
	return p.fetch(ctx, endpoint)
}

// directoryRecord matches the directory's wire format.
type directoryRecord struct {
	BankName    string `json:"bankName"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	Region      string `json:"region,omitempty"`
}

func (p *HTTPDirectoryProvider) fetch(ctx context.Context, endpoint string) (*domain.BankInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound:
		return nil, errors.ErrBankNotFound
	default:
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var record directoryRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	if record.BankName == "" {
		return nil, errors.ErrBankNotFound
	}

	return &domain.BankInfo{
		BankName:    record.BankName,
		Country:     record.Country,
		CountryCode: record.CountryCode,
		City:        record.City,
		Region:      record.Region,
	}, nil
}

// StaticDirectoryProvider serves a fixed set of directory records. Used in
// development and tests when the external directory is unreachable.
type StaticDirectoryProvider struct {
	bySwift map[string]domain.BankInfo
	byBank  map[string]domain.BankInfo // country code + bank code from IBAN
}

// NewStaticDirectoryProvider returns a provider preloaded with a handful of
// well-known institutions.
func NewStaticDirectoryProvider() *StaticDirectoryProvider {
	return &StaticDirectoryProvider{
		bySwift: map[string]domain.BankInfo{
			"CHASUS33":    {BankName: "JPMorgan Chase Bank", Country: "United States", CountryCode: "US", City: "New York"},
			"CHASUS33XXX": {BankName: "JPMorgan Chase Bank", Country: "United States", CountryCode: "US", City: "New York"},
			"DEUTDEFF":    {BankName: "Deutsche Bank", Country: "Germany", CountryCode: "DE", City: "Frankfurt am Main"},
			"BARCGB22":    {BankName: "Barclays Bank", Country: "United Kingdom", CountryCode: "GB", City: "London"},
			"HDFCINBB":    {BankName: "HDFC Bank", Country: "India", CountryCode: "IN", City: "Mumbai"},
			"ANZBAU3M":    {BankName: "ANZ Banking Group", Country: "Australia", CountryCode: "AU", City: "Melbourne"},
			"ROYCCAT2":    {BankName: "Royal Bank of Canada", Country: "Canada", CountryCode: "CA", City: "Toronto"},
			"SBZAZAJJ":    {BankName: "Standard Bank of South Africa", Country: "South Africa", CountryCode: "ZA", City: "Johannesburg"},
		},
		byBank: map[string]domain.BankInfo{
			"DE37040044": {BankName: "Commerzbank", Country: "Germany", CountryCode: "DE", City: "Cologne"},
			"GB20060161": {BankName: "Barclays Bank", Country: "United Kingdom", CountryCode: "GB", City: "London"},
			"FR30006000": {BankName: "Credit Agricole", Country: "France", CountryCode: "FR", City: "Paris"},
		},
	}
}

func (p *StaticDirectoryProvider) Name() string {
	return "StaticDirectory"
}

func (p *StaticDirectoryProvider) LookupSwift(ctx context.Context, code string) (*domain.BankInfo, error) {
	if info, ok := p.bySwift[code]; ok {
		out := info
		return &out, nil
	}
	return nil, errors.ErrBankNotFound
}

func (p *StaticDirectoryProvider) LookupIBAN(ctx context.Context, iban string) (*domain.BankInfo, error) {
	// Country code (2) + skip check digits (2) + bank code (8 for the
	// countries we preload).
	if len(iban) >= 12 {
		key := iban[:2] + iban[4:12]
		if info, ok := p.byBank[key]; ok {
			out := info
			return &out, nil
		}
	}
	return nil, errors.ErrBankNotFound
}
