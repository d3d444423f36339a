package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorthWatch/internal/domain/models"
)

func testSettings() *models.Settings {
	return &models.Settings{
		SettingsVersion: 3,
		BaseCurrency:    "EUR",
		HICP:            models.HICPSettings{BaseYear: 2025, BaseMonth: 1, BaseValue: 100},
		Categories: models.Categories{
			Assets:            []string{"Cash", "Investments"},
			Liabilities:       []string{"Mortgage"},
			PositiveCashFlows: []string{"Salary"},
			NegativeCashFlows: []string{"Rent"},
		},
	}
}

func fptr(v float64) *float64 { return &v }

// flatMonth is a single-entry month: one EUR cash balance and an index reading.
func flatMonth(month string, nw float64, index float64) *models.MonthInput {
	return &models.MonthInput{
		Month:   month,
		FXRates: map[string]float64{"EUR": 1.0},
		HICP:    fptr(index),
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "Cash", Currency: "EUR", Balance: decimal.NewFromFloat(nw)},
		},
	}
}

func buildNow() Options {
	return Options{Now: time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)}
}

func TestBuild_ExactCurrencyConversion(t *testing.T) {
	// 100 USD at 0.92 must land as exactly 92.00, not 92.00000000000001.
	settings := testSettings()
	months := []*models.MonthInput{{
		Month:   "2025-01",
		FXRates: map[string]float64{"EUR": 1.0, "USD": 0.92},
		HICP:    fptr(100),
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "US brokerage", Kind: "Investments", Currency: "USD", Balance: decimal.NewFromInt(100)},
		},
	}}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)
	require.Len(t, dash.Snapshots, 1)

	snap := dash.Snapshots[0]
	assert.Equal(t, 92.0, snap.Totals.Assets)
	assert.Equal(t, 92.0, snap.Totals.NetWorth)
	assert.Equal(t, 92.0, snap.ByCategory.Assets["Investments"])
}

func TestBuild_BaseCurrencyImplicitRate(t *testing.T) {
	// The FX table does not have to list the base currency.
	settings := testSettings()
	months := []*models.MonthInput{{
		Month:   "2025-01",
		FXRates: map[string]float64{"USD": 0.92},
		HICP:    fptr(100),
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "Cash", Currency: "EUR", Balance: decimal.NewFromInt(500)},
		},
	}}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)
	assert.Equal(t, 500.0, dash.Snapshots[0].Totals.Assets)
}

func TestBuild_MissingRateIsFatal(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{{
		Month:   "2025-01",
		FXRates: map[string]float64{"EUR": 1.0},
		HICP:    fptr(100),
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Yen account", Kind: "Cash", Currency: "JPY", Balance: decimal.NewFromInt(100000)},
		},
	}}

	_, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.Error(t, err)

	var missing *MissingRateError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "2025-01", missing.Month)
	assert.Equal(t, "JPY", missing.Currency)
}

func TestBuild_UnmappedCategoryWarnsAndExcludes(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{{
		Month:   "2025-01",
		FXRates: map[string]float64{"EUR": 1.0},
		HICP:    fptr(100),
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "Cash", Currency: "EUR", Balance: decimal.NewFromInt(1000)},
			{Name: "BTC stash", Kind: "crypto", Currency: "EUR", Balance: decimal.NewFromInt(5000)},
		},
	}}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)

	snap := dash.Snapshots[0]
	assert.Equal(t, 1000.0, snap.Totals.Assets, "unmapped entry must not count")
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, `unmapped category "crypto" for entry "BTC stash": excluded from totals`, snap.Warnings[0])
}

func TestBuild_CategoryMatchingIsCaseInsensitive(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{{
		Month:   "2025-01",
		FXRates: map[string]float64{"EUR": 1.0},
		HICP:    fptr(100),
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "CASH", Currency: "EUR", Balance: decimal.NewFromInt(700)},
			{Name: "Savings", Kind: " cash ", Currency: "EUR", Balance: decimal.NewFromInt(300)},
		},
	}}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)

	snap := dash.Snapshots[0]
	assert.Empty(t, snap.Warnings)
	// The reported key uses the settings casing, not the entries'.
	assert.Equal(t, 1000.0, snap.ByCategory.Assets["Cash"])
	assert.NotContains(t, snap.ByCategory.Assets, "CASH")
}

func TestBuild_NetWorthReconcilesFromRoundedTotals(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{{
		Month:   "2025-01",
		FXRates: map[string]float64{"EUR": 1.0},
		HICP:    fptr(100),
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "Cash", Currency: "EUR", Balance: decimal.RequireFromString("1000.005")},
			{Name: "Mortgage", Kind: "Mortgage", Currency: "EUR", Balance: decimal.RequireFromString("400.004")},
		},
	}}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)

	snap := dash.Snapshots[0]
	// 1000.005 rounds to 1000.01 (half up), 400.004 to 400.00.
	assert.Equal(t, 1000.01, snap.Totals.Assets)
	assert.Equal(t, 400.0, snap.Totals.Liabilities)
	assert.Equal(t, 600.01, snap.Totals.NetWorth)
}

func TestBuild_CashFlowAndSaveRate(t *testing.T) {
	settings := testSettings()
	month := flatMonth("2025-01", 1000, 100)
	month.CashFlowEntries = []models.CashFlowEntry{
		{Name: "Paycheck", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(1000)},
		{Name: "Apartment", Kind: "Rent", Currency: "EUR", Amount: decimal.NewFromInt(250)},
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{month}, buildNow())
	require.NoError(t, err)

	cf := dash.Snapshots[0].CashFlow
	assert.Equal(t, 1000.0, cf.Income)
	assert.Equal(t, 250.0, cf.Expenses)
	assert.Equal(t, 750.0, cf.NetCashFlow)
	assert.Equal(t, 0.75, cf.SaveRate)
}

func TestBuild_SaveRateZeroWithoutIncome(t *testing.T) {
	settings := testSettings()
	month := flatMonth("2025-01", 1000, 100)
	month.CashFlowEntries = []models.CashFlowEntry{
		{Name: "Apartment", Kind: "Rent", Currency: "EUR", Amount: decimal.NewFromInt(100)},
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{month}, buildNow())
	require.NoError(t, err)

	cf := dash.Snapshots[0].CashFlow
	assert.Equal(t, 0.0, cf.Income)
	assert.Equal(t, 100.0, cf.Expenses)
	assert.Equal(t, -100.0, cf.NetCashFlow)
	assert.Equal(t, 0.0, cf.SaveRate, "no income means no ratio")
}

func TestBuild_NegativeIncomeSumStaysSigned(t *testing.T) {
	// A reversal larger than the month's pay leaves the positive bucket
	// negative; it must not be flipped into phantom income.
	settings := testSettings()
	month := flatMonth("2025-01", 1000, 100)
	month.CashFlowEntries = []models.CashFlowEntry{
		{Name: "Paycheck", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(500)},
		{Name: "Overpayment clawback", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(-700)},
		{Name: "Apartment", Kind: "Rent", Currency: "EUR", Amount: decimal.NewFromInt(100)},
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{month}, buildNow())
	require.NoError(t, err)

	cf := dash.Snapshots[0].CashFlow
	assert.Equal(t, -200.0, cf.Income)
	assert.Equal(t, 100.0, cf.Expenses)
	assert.Equal(t, -300.0, cf.NetCashFlow)
	assert.Equal(t, 0.0, cf.SaveRate, "negative income means no ratio")
}

func TestBuild_DuplicateMonthIsFatal(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{
		flatMonth("2025-01", 1000, 100),
		flatMonth("2025-01", 2000, 100),
	}

	_, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.Error(t, err)

	var dup *DuplicateMonthError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "2025-01", dup.Month)
}

func TestBuild_MalformedMonthKeyIsFatal(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{flatMonth("2025/03", 1000, 100)}

	_, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.Error(t, err)

	var malformed *MalformedMonthError
	assert.True(t, errors.As(err, &malformed))
}

func TestBuild_SnapshotsAscendingRegardlessOfInputOrder(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{
		flatMonth("2025-03", 1000, 100),
		flatMonth("2025-01", 1000, 100),
		flatMonth("2025-02", 1000, 100),
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)
	require.Len(t, dash.Snapshots, 3)
	assert.Equal(t, "2025-01", dash.Snapshots[0].Month)
	assert.Equal(t, "2025-02", dash.Snapshots[1].Month)
	assert.Equal(t, "2025-03", dash.Snapshots[2].Month)
}

func TestBuild_MissingIndexIsFatalWhenEnabled(t *testing.T) {
	settings := testSettings()
	month := flatMonth("2025-01", 1000, 100)
	month.HICP = nil

	_, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{month}, buildNow())
	require.Error(t, err)

	var missing *MissingIndexError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "2025-01", missing.Month)
}

func TestBuild_HICPDisabledSkipsRealWealth(t *testing.T) {
	settings := testSettings()
	disabled := false
	settings.HICP.Enabled = &disabled

	m1 := flatMonth("2025-01", 1000, 100)
	m1.HICP = nil
	m2 := flatMonth("2025-02", 1100, 100)
	m2.HICP = nil

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{m1, m2}, buildNow())
	require.NoError(t, err)

	for _, snap := range dash.Snapshots {
		assert.Nil(t, snap.RealWealth)
	}
	// With no index the real return equals the nominal one.
	perf := dash.Snapshots[1].Performance
	assert.Equal(t, perf.NominalReturn, perf.RealReturn)
	assert.Equal(t, 0.1, perf.NominalReturn)
}

func TestBuild_FirstMonthHasNoReturns(t *testing.T) {
	settings := testSettings()
	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{flatMonth("2025-01", 1000, 100)}, buildNow())
	require.NoError(t, err)

	snap := dash.Snapshots[0]
	assert.Equal(t, 0.0, snap.Performance.NominalReturn)
	assert.Equal(t, 0.0, snap.Performance.RealReturn)
	assert.Equal(t, 1.0, snap.Performance.TWRCumulative)
	require.NotNil(t, snap.RealWealth)
	assert.Zero(t, snap.RealWealth.ChangePctFromPrev, "first month has no previous value")
}

func TestBuild_ZeroPreviousNetWorthGuards(t *testing.T) {
	settings := testSettings()
	months := []*models.MonthInput{
		flatMonth("2025-01", 0, 100),
		flatMonth("2025-02", 1000, 100),
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)

	second := dash.Snapshots[1]
	assert.Equal(t, 0.0, second.Performance.NominalReturn)
	assert.Equal(t, 1.0, second.Performance.TWRCumulative)
	assert.Contains(t, second.Warnings, "previous net worth is zero: returns set to 0")
	require.NotNil(t, second.RealWealth)
	assert.Zero(t, second.RealWealth.ChangePctFromPrev, "zero previous real value has no growth rate")
}

func TestBuild_DocumentedPerformanceScenario(t *testing.T) {
	// Nine flat months at 113,377 with index 100, then a jump to 208,174
	// with 27,000 of net inflows and the index at 102.1.
	//
	// nominal = (208174 - 113377 - 27000) / 113377 = 0.59798 -> 0.598
	// real    = 0.59798 - (102.1/100 - 1)          = 0.57698 -> 0.577
	// twr     = 1.0 * (1 + 0.57698)                           -> 1.577
	settings := testSettings()

	var months []*models.MonthInput
	for m := 1; m <= 9; m++ {
		months = append(months, flatMonth(time.Date(2025, time.Month(m), 1, 0, 0, 0, 0, time.UTC).Format("2006-01"), 113377, 100))
	}
	oct := flatMonth("2025-10", 208174, 102.1)
	oct.CashFlowEntries = []models.CashFlowEntry{
		{Name: "Paycheck", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(27000)},
	}
	months = append(months, oct)

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)
	require.Len(t, dash.Snapshots, 10)

	for _, snap := range dash.Snapshots[:9] {
		assert.Equal(t, 0.0, snap.Performance.NominalReturn)
		assert.Equal(t, 1.0, snap.Performance.TWRCumulative)
	}

	last := dash.Snapshots[9]
	assert.InDelta(t, 0.598, last.Performance.NominalReturn, 0.0001)
	assert.InDelta(t, 0.577, last.Performance.RealReturn, 0.0001)
	assert.InDelta(t, 1.577, last.Performance.TWRCumulative, 0.0001)

	require.NotNil(t, last.RealWealth)
	// 208174 * 100/102.1 = 203892.26 in January prices, a fractional
	// 203892.26/113377 - 1 = 0.7984 over September.
	assert.InDelta(t, 203892.26, last.RealWealth.NetWorthReal, 0.01)
	assert.InDelta(t, 0.7984, last.RealWealth.ChangePctFromPrev, 0.0001)
}

func TestBuild_RealGrowthIsAFraction(t *testing.T) {
	// 1000 -> 1100 at a flat index is a 0.1 growth fraction, not 10.
	settings := testSettings()
	months := []*models.MonthInput{
		flatMonth("2025-01", 1000, 100),
		flatMonth("2025-02", 1100, 100),
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)

	second := dash.Snapshots[1]
	require.NotNil(t, second.RealWealth)
	assert.Equal(t, 0.1, second.RealWealth.ChangePctFromPrev)
}

func TestBuild_TWRCompoundsAcrossMonths(t *testing.T) {
	// Two consecutive nonzero steps: +10% then +20% must compound to 1.32,
	// and each cumulative value must equal the previous one times (1+real).
	settings := testSettings()
	months := []*models.MonthInput{
		flatMonth("2025-01", 1000, 100),
		flatMonth("2025-02", 1100, 100),
		flatMonth("2025-03", 1320, 100),
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, months, buildNow())
	require.NoError(t, err)
	require.Len(t, dash.Snapshots, 3)

	second := dash.Snapshots[1].Performance
	third := dash.Snapshots[2].Performance
	assert.InDelta(t, 0.1, second.RealReturn, 0.0001)
	assert.InDelta(t, 1.1, second.TWRCumulative, 0.0001)
	assert.InDelta(t, 0.2, third.RealReturn, 0.0001)
	assert.InDelta(t, 1.32, third.TWRCumulative, 0.0001)
	assert.InDelta(t, second.TWRCumulative*(1+third.RealReturn), third.TWRCumulative, 0.0001)
}

func TestBuild_ExternalFlowSourceNone(t *testing.T) {
	settings := testSettings()
	settings.Performance.ExternalFlowSource = "none"

	m1 := flatMonth("2025-01", 1000, 100)
	m2 := flatMonth("2025-02", 1500, 100)
	m2.CashFlowEntries = []models.CashFlowEntry{
		{Name: "Paycheck", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(500)},
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{m1, m2}, buildNow())
	require.NoError(t, err)

	// With flows ignored, the whole 50% shows up as return.
	assert.Equal(t, 0.5, dash.Snapshots[1].Performance.NominalReturn)
}

func TestBuild_YearlyStats(t *testing.T) {
	settings := testSettings()

	nov := flatMonth("2024-11", 1000, 100)
	nov.CashFlowEntries = []models.CashFlowEntry{
		{Name: "Paycheck", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(1000)},
		{Name: "Apartment", Kind: "Rent", Currency: "EUR", Amount: decimal.NewFromInt(500)},
	}
	dec := flatMonth("2024-12", 1000, 100)
	dec.CashFlowEntries = []models.CashFlowEntry{
		{Name: "Paycheck", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(1000)},
	}
	jan := flatMonth("2025-01", 1000, 100)

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{nov, dec, jan}, buildNow())
	require.NoError(t, err)
	require.Len(t, dash.YearlyStats, 2)

	y2024 := dash.YearlyStats[0]
	assert.Equal(t, 2024, y2024.Year)
	assert.Equal(t, 2, y2024.MonthsCount)
	assert.Equal(t, 2000.0, y2024.TotalIncome)
	assert.Equal(t, 500.0, y2024.TotalExpenses)
	assert.Equal(t, 1500.0, y2024.TotalSavings)
	// (0.5 + 1.0) / 2
	assert.Equal(t, 0.75, y2024.AverageSaveRate)

	y2025 := dash.YearlyStats[1]
	assert.Equal(t, 2025, y2025.Year)
	assert.Equal(t, 1, y2025.MonthsCount)
	assert.Equal(t, 0.0, y2025.AverageSaveRate)
}

func TestBuild_PurchasingPower(t *testing.T) {
	settings := testSettings()
	settings.CostOfLiving = &models.CostOfLivingSettings{
		Enabled: true,
		Weights: models.ECLIWeights{Rent: 0.40, Groceries: 0.35, CostOfLiving: 0.25},
	}

	month := flatMonth("2025-01", 100000, 100)
	month.ECLI = &models.ECLIInput{
		RentIndex:         fptr(95),
		GroceriesIndex:    fptr(98),
		CostOfLivingIndex: fptr(97),
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{month}, buildNow())
	require.NoError(t, err)

	pp := dash.Snapshots[0].PurchasingPower
	require.NotNil(t, pp)
	// 0.40*95 + 0.35*98 + 0.25*97 = 96.55
	assert.Equal(t, 96.55, pp.ECLI)
	assert.Equal(t, 0.9655, pp.ECLINorm)
	assert.InDelta(t, 1.0357, pp.Scale, 0.0001)
	assert.InDelta(t, 3.57, pp.NYAdvantagePct, 0.01)
	assert.InDelta(t, 103573.28, pp.ColAdjustedNetWorth, 0.01)
	assert.Equal(t, pp.ColAdjustedNetWorth, pp.RealPurchasingPower, "index at baseline: both adjustments agree")
}

func TestBuild_PurchasingPowerOmittedWithoutReadings(t *testing.T) {
	settings := testSettings()
	settings.CostOfLiving = &models.CostOfLivingSettings{Enabled: true}

	month := flatMonth("2025-01", 100000, 100)
	month.ECLI = &models.ECLIInput{RentIndex: fptr(95)} // incomplete

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{month}, buildNow())
	require.NoError(t, err)
	assert.Nil(t, dash.Snapshots[0].PurchasingPower)
}

func TestBuild_SuspiciouslyLowECLIWarns(t *testing.T) {
	settings := testSettings()
	settings.CostOfLiving = &models.CostOfLivingSettings{Enabled: true}

	month := flatMonth("2025-01", 100000, 100)
	month.ECLI = &models.ECLIInput{
		RentIndex:         fptr(15),
		GroceriesIndex:    fptr(15),
		CostOfLivingIndex: fptr(15),
	}

	dash, err := NewBuilder(nil).Build(context.Background(), settings, []*models.MonthInput{month}, buildNow())
	require.NoError(t, err)

	require.NotNil(t, dash.Snapshots[0].PurchasingPower)
	require.Len(t, dash.Snapshots[0].Warnings, 1)
	assert.Contains(t, dash.Snapshots[0].Warnings[0], "suspiciously low")
}

func TestBuild_EmptyLedger(t *testing.T) {
	dash, err := NewBuilder(nil).Build(context.Background(), testSettings(), nil, buildNow())
	require.NoError(t, err)
	assert.Empty(t, dash.Snapshots)
	assert.Empty(t, dash.YearlyStats)
	assert.Equal(t, "EUR", dash.Metadata.BaseCurrency)
}

func TestBuild_DeterministicOutput(t *testing.T) {
	// Two builds over the same ledger with the same clock must serialize
	// byte-identically; the HTTP ETag depends on it.
	settings := testSettings()
	months := []*models.MonthInput{
		flatMonth("2025-01", 113377, 100),
		flatMonth("2025-02", 120000, 100.5),
	}
	months[1].CashFlowEntries = []models.CashFlowEntry{
		{Name: "Paycheck", Kind: "Salary", Currency: "EUR", Amount: decimal.NewFromInt(3000)},
		{Name: "Apartment", Kind: "Rent", Currency: "EUR", Amount: decimal.NewFromInt(1200)},
	}
	opts := buildNow()

	first, err := NewBuilder(nil).Build(context.Background(), settings, months, opts)
	require.NoError(t, err)
	second, err := NewBuilder(nil).Build(context.Background(), settings, months, opts)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuild_MetadataUsesInjectedClock(t *testing.T) {
	dash, err := NewBuilder(nil).Build(context.Background(), testSettings(), nil, buildNow())
	require.NoError(t, err)
	assert.Equal(t, "2025-11-01T12:00:00Z", dash.Metadata.GeneratedAt)
	assert.Equal(t, 3, dash.Metadata.SettingsVersion)
}
