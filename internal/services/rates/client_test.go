package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorthWatch/pkg/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Rates.Enabled = true
	cfg.Rates.BaseURL = srv.URL
	cfg.Rates.Timeout = 2 * time.Second
	return NewClient(cfg, nil)
}

func TestFetchRatesInvertsProviderQuotes(t *testing.T) {
	// The provider quotes foreign units per 1 EUR; the ledger stores EUR per
	// foreign unit, so 1.25 USD per EUR must land as 0.80.
	var gotPath, gotBase string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBase = r.URL.Query().Get("base")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"EUR","date":"2025-01-31","rates":{"USD":1.25,"gbp":0.8}}`))
	})

	rates, err := client.FetchRates(context.Background(), "eur", "2025-01")
	require.NoError(t, err)

	assert.Equal(t, "/2025-01-31", gotPath, "rates are read at the month's last day")
	assert.Equal(t, "EUR", gotBase)
	assert.InDelta(t, 0.80, rates["USD"], 1e-9)
	assert.InDelta(t, 1.25, rates["GBP"], 1e-9)
	assert.Equal(t, 1.0, rates["EUR"])
}

func TestFetchRatesSkipsNonPositiveQuotes(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"base":"EUR","date":"2025-01-31","rates":{"USD":1.25,"VES":0}}`))
	})

	rates, err := client.FetchRates(context.Background(), "EUR", "2025-01")
	require.NoError(t, err)
	assert.NotContains(t, rates, "VES")
	assert.InDelta(t, 0.80, rates["USD"], 1e-9)
}

func TestFetchRatesEmptyTableFails(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"base":"EUR","date":"2025-01-31","rates":{}}`))
	})

	_, err := client.FetchRates(context.Background(), "EUR", "2025-01")
	require.Error(t, err)
}

func TestFetchRatesRejectsMalformedMonth(t *testing.T) {
	called := false
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := client.FetchRates(context.Background(), "EUR", "2025/01")
	require.Error(t, err)
	assert.False(t, called, "a malformed month must not reach the provider")
}
