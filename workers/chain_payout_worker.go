package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// ChainPayoutClient triggers on-chain transfers through the settlement
// backend. It is invoked only after a payout amount has been computed and
// is fire-and-forget: a failed trigger never rolls back a settlement.
type ChainPayoutClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewChainPayoutClient() *ChainPayoutClient {
	baseURL := os.Getenv("SETTLEMENT_BACKEND_URL")
	if baseURL == "" {
		log.Println("⚠️  SETTLEMENT_BACKEND_URL not set — on-chain payout triggers disabled")
		return nil
	}

	return &ChainPayoutClient{
		BaseURL: baseURL,
		Token:   os.Getenv("SETTLEMENT_BACKEND_TOKEN"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PayoutReceipt is the backend's acknowledgement of a transfer trigger.
type PayoutReceipt struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

// CashoutQuote is a USD conversion quote for a token amount.
type CashoutQuote struct {
	TokenAmount int64   `json:"token_amount"`
	UsdAmount   float64 `json:"usd_amount"`
	Rate        float64 `json:"rate"`
	Network     string  `json:"network"`
}

func (c *ChainPayoutClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call settlement backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("settlement backend returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode settlement backend response: %w", err)
		}
	}
	return nil
}

// RequestPayout fires the on-chain transfer for a settled winner. The
// backend resolves the user's wallet address.
func (c *ChainPayoutClient) RequestPayout(ctx context.Context, userID string, amount int64, matchID string) (*PayoutReceipt, error) {
	var receipt PayoutReceipt
	err := c.post(ctx, "/api/settlement/payout", map[string]interface{}{
		"user_id":  userID,
		"amount":   amount,
		"match_id": matchID,
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// RequestCashout fires a balance withdrawal transfer.
func (c *ChainPayoutClient) RequestCashout(ctx context.Context, userID string, amount int64, network string) (*PayoutReceipt, error) {
	var receipt PayoutReceipt
	err := c.post(ctx, "/api/settlement/request-cashout", map[string]interface{}{
		"user_id":         userID,
		"token_amount":    amount,
		"network":         network,
		"stable_currency": "USDs",
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Quote fetches a USD settlement quote for a token amount.
func (c *ChainPayoutClient) Quote(ctx context.Context, amount int64, network string) (*CashoutQuote, error) {
	var quote CashoutQuote
	err := c.post(ctx, "/api/settlement/quote", map[string]interface{}{
		"token_amount": amount,
		"network":      network,
	}, &quote)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}
