// Package wallet is the REST client for the external custody wallet
// service. The bet ledger only records stakes this service has confirmed
// and collected; the core never touches custody funds directly.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// Client implements domain.WalletService over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a wallet client. baseURL is the wallet service root, e.g.
// "https://wallet.internal:9443".
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type transferRequest struct {
	UserID         int64  `json:"user_id"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
	Reference      string `json:"reference,omitempty"`
}

type transferResponse struct {
	TransferRef string `json:"transfer_ref"`
	Error       string `json:"error,omitempty"`
}

// Debit withdraws amount from the user's custody wallet and returns the
// transfer reference. An HTTP 402 from the service maps to
// domain.ErrInsufficientBalance.
func (c *Client) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (string, error) {
	resp, err := c.post(ctx, "/v1/transfers/debit", transferRequest{
		UserID:         userID,
		Amount:         amount.StringFixed(domain.CurrencyScale),
		IdempotencyKey: uuid.New().String(),
	})
	if err != nil {
		return "", fmt.Errorf("wallet: debit user %d: %w", userID, err)
	}
	return resp.TransferRef, nil
}

// Refund returns a previously debited amount, referencing the original
// transfer.
func (c *Client) Refund(ctx context.Context, userID int64, amount decimal.Decimal, transferRef string) error {
	_, err := c.post(ctx, "/v1/transfers/refund", transferRequest{
		UserID:         userID,
		Amount:         amount.StringFixed(domain.CurrencyScale),
		IdempotencyKey: uuid.New().String(),
		Reference:      transferRef,
	})
	if err != nil {
		return fmt.Errorf("wallet: refund user %d: %w", userID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, reqBody transferRequest) (transferResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return transferResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return transferResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transferResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return transferResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusPaymentRequired {
		return transferResponse{}, domain.ErrInsufficientBalance
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transferResponse{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var out transferResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return transferResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return transferResponse{}, fmt.Errorf("wallet service error: %s", out.Error)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.WalletService = (*Client)(nil)
