// Package external implements the FAERS report-count collaborator: an
// openFDA client with rate limiting, a two-level response cache, and a
// circuit-breaker wrapper exposing the domain.ReportCountSource contract.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ae-risk-core/internal/domain"
)

// OpenFDAClient queries the openFDA drug adverse-event endpoint for report
// counts. It issues one request per marginal count and assembles the 2x2
// table client-side.
type OpenFDAClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenFDAClient creates a new openFDA API client
func NewOpenFDAClient(config domain.FAERSConfig) *OpenFDAClient {
	rps := config.RateLimit
	if rps <= 0 {
		rps = 4
	}
	burst := config.Burst
	if burst <= 0 {
		burst = rps
	}
	return &OpenFDAClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// countResponse is the envelope openFDA returns for limit=1 queries; only
// the total matters here.
type countResponse struct {
	Meta struct {
		Results struct {
			Total int64 `json:"total"`
		} `json:"results"`
	} `json:"meta"`
}

// FetchCounts assembles the contingency table for one product x event pair
// from four marginal count queries:
//
//	nBoth    - reports naming the product and the event
//	nProduct - reports naming the product
//	nEvent   - reports naming the event
//	total    - all reports in the database
func (c *OpenFDAClient) FetchCounts(ctx context.Context, product, event string) (*domain.ReportCounts, error) {
	if product == "" || event == "" {
		return nil, domain.NewValidationError("product", "product and event identifiers are required", product)
	}

	productTerm := fmt.Sprintf(`patient.drug.medicinalproduct:%q`, product)
	eventTerm := fmt.Sprintf(`patient.reaction.reactionmeddrapt:%q`, event)

	nBoth, err := c.countReports(ctx, productTerm+" AND "+eventTerm)
	if err != nil {
		return nil, err
	}
	nProduct, err := c.countReports(ctx, productTerm)
	if err != nil {
		return nil, err
	}
	nEvent, err := c.countReports(ctx, eventTerm)
	if err != nil {
		return nil, err
	}
	total, err := c.countReports(ctx, "")
	if err != nil {
		return nil, err
	}

	counts := &domain.ReportCounts{
		Product: product,
		Event:   event,
		A:       nBoth,
		B:       clampNonNegative(nProduct - nBoth),
		C:       clampNonNegative(nEvent - nBoth),
		D:       clampNonNegative(total - nProduct - nEvent + nBoth),
		Total:   total,
	}
	if err := counts.Validate(); err != nil {
		return nil, fmt.Errorf("openFDA returned inconsistent counts: %w", err)
	}
	return counts, nil
}

// countReports returns the total report count matching a search expression;
// an empty expression counts the whole database.
func (c *OpenFDAClient) countReports(ctx context.Context, search string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	params := url.Values{"limit": {"1"}}
	if search != "" {
		params.Set("search", search)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s/drug/event.json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create count request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute count request: %w", err)
	}
	defer resp.Body.Close()

	// openFDA answers 404 for searches with zero matches.
	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("openFDA count returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read count response: %w", err)
	}

	var parsed countResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse count response: %w", err)
	}
	return parsed.Meta.Results.Total, nil
}

// Ping issues a minimal database-wide count to verify connectivity.
func (c *OpenFDAClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.countReports(ctx, "")
	return err
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
