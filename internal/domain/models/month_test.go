package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthInputDecode(t *testing.T) {
	doc := `{
		"month": "2025-03",
		"fx_rates": {"EUR": 1.0, "USD": 0.92},
		"hicp": 102.5,
		"net_worth_entries": [
			{"name": "Checking", "type": "cash", "currency": "EUR", "balance": 1500.25}
		],
		"cash_flow_entries": [
			{"name": "Paycheck", "type": "salary", "currency": "EUR", "amount": 3000}
		]
	}`

	var m MonthInput
	require.NoError(t, json.Unmarshal([]byte(doc), &m))

	assert.Equal(t, "2025-03", m.Month)
	require.NotNil(t, m.HICP)
	assert.Equal(t, 102.5, *m.HICP)
	require.Len(t, m.NetWorthEntries, 1)
	assert.Equal(t, "1500.25", m.NetWorthEntries[0].Balance.String())
	require.Len(t, m.CashFlowEntries, 1)
	assert.Equal(t, "salary", m.CashFlowEntries[0].Kind)
}

func TestMonthInputDecodeLegacySpellings(t *testing.T) {
	// Older ledger files used "reference_month" and "cash-flow-entries".
	doc := `{
		"reference_month": "2024-12",
		"fx_rates": {"EUR": 1.0},
		"hicp": "101.3",
		"cash-flow-entries": [
			{"name": "Apartment", "type": "rent", "currency": "EUR", "amount": 1200}
		],
		"net_worth_entries": []
	}`

	var m MonthInput
	require.NoError(t, json.Unmarshal([]byte(doc), &m))

	assert.Equal(t, "2024-12", m.Month)
	require.NotNil(t, m.HICP, "numeric strings are accepted")
	assert.Equal(t, 101.3, *m.HICP)
	require.Len(t, m.CashFlowEntries, 1)
	assert.Equal(t, "Apartment", m.CashFlowEntries[0].Name)
}

func TestMonthInputDecodeNonNumericIndex(t *testing.T) {
	doc := `{"month": "2025-01", "fx_rates": {}, "hicp": "n/a"}`

	var m MonthInput
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	assert.Nil(t, m.HICP, "junk index values read as absent")
}

func TestSnapshotMarshal(t *testing.T) {
	snap := Snapshot{
		Month:   "2025-01",
		FXRates: map[string]float64{"EUR": 1.0},
		Totals:  Totals{Assets: 92.0, Liabilities: 0, NetWorth: 92.0},
		ByCategory: ByCategory{
			Assets:      map[string]float64{"Cash": 92.0},
			Liabilities: map[string]float64{},
		},
	}

	b, err := json.Marshal(snap)
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, `"net_worth":92`)
	assert.NotContains(t, s, "warnings", "empty warnings are omitted")
	assert.NotContains(t, s, "real_wealth", "absent normalization is omitted")
}

func TestHICPSettingsEnabledDefaultsOn(t *testing.T) {
	var h HICPSettings
	assert.True(t, h.IsEnabled())

	off := false
	h.Enabled = &off
	assert.False(t, h.IsEnabled())
}
