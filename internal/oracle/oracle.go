// Package oracle provides the external spot-price lookup used to convert
// foreign-currency balances into the settlement currency, plus the explicit
// fallback policy applied when the lookup fails.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable wraps every transport or decode failure from the price
// service. Callers degrade per their FallbackPolicy rather than propagating.
var ErrUnavailable = errors.New("oracle: price service unavailable")

// FallbackPolicy defines how a balance is valued when its spot price cannot
// be fetched. The degrade-to-raw-balance behavior is a deliberate
// financial-accuracy tradeoff, configured explicitly rather than falling out
// of generic error handling.
type FallbackPolicy int

const (
	// FallbackRawBalance treats the balance as already expressed in the
	// settlement currency (price 1). Conservative-but-inaccurate; keeps
	// admission available when the price service is down.
	FallbackRawBalance FallbackPolicy = iota

	// FallbackZero values the balance at nothing, excluding unpriceable
	// holdings from sufficiency checks.
	FallbackZero
)

// ParsePolicy maps a config string to a FallbackPolicy.
func ParsePolicy(s string) (FallbackPolicy, error) {
	switch s {
	case "", "raw_balance":
		return FallbackRawBalance, nil
	case "zero":
		return FallbackZero, nil
	default:
		return 0, fmt.Errorf("oracle: unknown fallback policy %q", s)
	}
}

// FallbackPrice returns the unit price substituted under this policy.
func (p FallbackPolicy) FallbackPrice() decimal.Decimal {
	if p == FallbackZero {
		return decimal.Zero
	}
	return decimal.NewFromInt(1)
}

// PriceSource fetches a spot price of one unit of from, quoted in to.
type PriceSource interface {
	GetSpotPrice(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Client is an HTTP-backed PriceSource. The upstream endpoint is
// GET {base}/data/price?fsym={from}&tsyms={to} returning a flat JSON object
// keyed by quote currency, e.g. {"USD": 64250.1}.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a price client with a bounded request timeout. A hung
// price service must not block admission indefinitely.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetSpotPrice(ctx context.Context, from, to string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/data/price?fsym=%s&tsyms=%s",
		c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	raw, ok := body[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no %s quote in response", ErrUnavailable, to)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed price %q", ErrUnavailable, raw.String())
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative price %s", ErrUnavailable, price)
	}
	return price, nil
}
