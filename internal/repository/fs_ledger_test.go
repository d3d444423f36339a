package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorthWatch/internal/domain/models"
)

func writeLedgerFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFSLedgerLoadSettings(t *testing.T) {
	dir := t.TempDir()
	writeLedgerFile(t, dir, "settings.json", `{
		"settings_version": 3,
		"base_currency": "EUR",
		"hicp": {"base_year": 2025, "base_month": 1, "base_value": 100},
		"categories": {
			"assets": ["Cash"],
			"liabilities": ["Mortgage"],
			"positive_cash_flows": ["Salary"],
			"negative_cash_flows": ["Rent"]
		}
	}`)

	ledger := NewFSLedger(dir, "")
	s, err := ledger.LoadSettings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, s.SettingsVersion)
	assert.Equal(t, "EUR", s.BaseCurrency)
	assert.True(t, s.HICP.IsEnabled(), "hicp defaults to enabled")
	assert.Equal(t, "net_cash_flow", s.Performance.ExternalFlowSource, "flow source defaults")
}

func TestFSLedgerLoadSettingsRejectsIncomplete(t *testing.T) {
	dir := t.TempDir()
	writeLedgerFile(t, dir, "settings.json", `{"settings_version": 1}`)

	_, err := NewFSLedger(dir, "").LoadSettings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate settings")
}

func TestFSLedgerMonths(t *testing.T) {
	dir := t.TempDir()
	writeLedgerFile(t, dir, "database/2025_02.json", `{"month": "2025-02", "fx_rates": {}}`)
	writeLedgerFile(t, dir, "database/2025_01.json", `{"month": "2025-01", "fx_rates": {}}`)
	writeLedgerFile(t, dir, "database/notes.txt", "not a month")

	months, err := NewFSLedger(dir, "").Months(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01", "2025-02"}, months)
}

func TestFSLedgerMonthsEmptyLedger(t *testing.T) {
	months, err := NewFSLedger(t.TempDir(), "").Months(context.Background())
	require.NoError(t, err)
	assert.Empty(t, months)
}

func TestFSLedgerLoadMonth(t *testing.T) {
	dir := t.TempDir()
	writeLedgerFile(t, dir, "database/2025_03.json", `{
		"fx_rates": {"EUR": 1.0},
		"net_worth_entries": [
			{"name": "Checking", "type": "cash", "currency": "EUR", "balance": 1200.50}
		]
	}`)

	in, err := NewFSLedger(dir, "").LoadMonth(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", in.Month, "month backfilled from file name")
	require.Len(t, in.NetWorthEntries, 1)
	assert.Equal(t, "1200.5", in.NetWorthEntries[0].Balance.String())
}

func TestFSLedgerLoadMonthRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	writeLedgerFile(t, dir, "database/2025_03.json", `{"month": "2025-04", "fx_rates": {}}`)

	_, err := NewFSLedger(dir, "").LoadMonth(context.Background(), "2025-03")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares month")
}

func TestFSLedgerSaveMonthRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ledger := NewFSLedger(dir, "")

	in := &models.MonthInput{
		Month:   "2025-05",
		FXRates: map[string]float64{"EUR": 1.0, "USD": 0.92},
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "cash", Currency: "EUR", Balance: decimal.RequireFromString("950.25")},
		},
	}
	require.NoError(t, ledger.SaveMonth(context.Background(), in))

	// No temp file left behind.
	_, err := os.Stat(filepath.Join(dir, "database", "2025_05.json.tmp"))
	assert.True(t, os.IsNotExist(err))

	got, err := ledger.LoadMonth(context.Background(), "2025-05")
	require.NoError(t, err)
	assert.Equal(t, in.FXRates, got.FXRates)
	require.Len(t, got.NetWorthEntries, 1)
	assert.True(t, got.NetWorthEntries[0].Balance.Equal(in.NetWorthEntries[0].Balance))
}

func TestFSLedgerSaveMonthRejectsBadKey(t *testing.T) {
	err := NewFSLedger(t.TempDir(), "").SaveMonth(context.Background(), &models.MonthInput{Month: "2025-13"})
	require.Error(t, err)
}
