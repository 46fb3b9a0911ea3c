// Package oracle is the REST client for the token price oracle. It converts
// token symbols into USD prices so the API layer can translate
// token-denominated stakes into the USD amounts the core ledger operates
// on.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// Client implements domain.PriceOracle over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an oracle client. baseURL is the price service root.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type priceResponse struct {
	Symbol   string `json:"symbol"`
	PriceUSD string `json:"price_usd"`
}

// USDPrice returns the USD price for the given token symbol.
func (c *Client) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("oracle: empty symbol")
	}

	u := c.baseURL + "/v1/prices/" + url.PathEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("oracle: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("oracle: get price %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return decimal.Zero, fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("oracle: price %s: unexpected status %d: %s",
			symbol, resp.StatusCode, string(data))
	}

	var out priceResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return decimal.Zero, fmt.Errorf("oracle: decode price %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(out.PriceUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("oracle: parse price %q for %s: %w", out.PriceUSD, symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("oracle: non-positive price %s for %s", price, symbol)
	}
	return price, nil
}

// Compile-time interface check.
var _ domain.PriceOracle = (*Client)(nil)
