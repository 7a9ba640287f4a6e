package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackendStub(t *testing.T, handler http.HandlerFunc) *ChainPayoutClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &ChainPayoutClient{
		BaseURL:    srv.URL,
		Token:      "test-token",
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	}
}

func TestRequestPayout(t *testing.T) {
	c := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/settlement/payout", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body["user_id"])
		assert.Equal(t, float64(700), body["amount"])
		assert.Equal(t, "match-1", body["match_id"])

		fmt.Fprint(w, `{"tx_hash": "0xabc", "status": "pending"}`)
	})

	receipt, err := c.RequestPayout(context.Background(), "user-1", 700, "match-1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", receipt.TxHash)
	assert.Equal(t, "pending", receipt.Status)
}

func TestRequestCashoutSendsStableCurrency(t *testing.T) {
	c := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/settlement/request-cashout", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "USDs", body["stable_currency"])
		assert.Equal(t, "polygon", body["network"])

		fmt.Fprint(w, `{"tx_hash": "0xdef", "status": "submitted"}`)
	})

	receipt, err := c.RequestCashout(context.Background(), "user-1", 500, "polygon")
	require.NoError(t, err)
	assert.Equal(t, "0xdef", receipt.TxHash)
}

func TestQuote(t *testing.T) {
	c := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token_amount": 1000, "usd_amount": 9.5, "rate": 0.0095, "network": "polygon"}`)
	})

	quote, err := c.Quote(context.Background(), 1000, "polygon")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.TokenAmount)
	assert.Equal(t, 9.5, quote.UsdAmount)
}

func TestBackendErrorSurfaces(t *testing.T) {
	c := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient hot wallet funds", http.StatusBadGateway)
	})

	_, err := c.RequestPayout(context.Background(), "user-1", 700, "match-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewChainPayoutClientDisabledWithoutURL(t *testing.T) {
	t.Setenv("SETTLEMENT_BACKEND_URL", "")
	assert.Nil(t, NewChainPayoutClient())
}
