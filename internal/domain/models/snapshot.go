package models

// Snapshot is one fully normalized month: converted totals, category splits,
// cash flow, performance, and the raw rates it was derived from. Snapshots
// carry the original FX table and index so every figure can be audited.
type Snapshot struct {
	Month           string             `json:"month"`
	FXRates         map[string]float64 `json:"fx_rates"`
	HICP            *float64           `json:"hicp,omitempty"`
	Totals          Totals             `json:"totals"`
	ByCategory      ByCategory         `json:"by_category"`
	CashFlow        CashFlow           `json:"cash_flow"`
	Performance     Performance        `json:"performance"`
	RealWealth      *RealWealth        `json:"real_wealth,omitempty"`
	PurchasingPower *PurchasingPower   `json:"purchasing_power,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
}

// Totals are base-currency sums rounded to cents. NetWorth is recomputed
// from the rounded assets and liabilities so the three always reconcile.
type Totals struct {
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
	NetWorth    float64 `json:"net_worth"`
}

// ByCategory keys use the casing configured in settings, regardless of how
// entries spelled their kind.
type ByCategory struct {
	Assets      map[string]float64 `json:"assets"`
	Liabilities map[string]float64 `json:"liabilities"`
}

// CashFlow reports monthly income and expenses as magnitudes. SaveRate is
// net over income, zero whenever income is not positive.
type CashFlow struct {
	Income      float64 `json:"income"`
	Expenses    float64 `json:"expenses"`
	NetCashFlow float64 `json:"net_cash_flow"`
	SaveRate    float64 `json:"save_rate"`
}

// Performance holds flow-adjusted monthly returns. TWRCumulative chains
// (1 + real return) across months, seeded at 1.
type Performance struct {
	NominalReturn float64 `json:"nominal_return"`
	RealReturn    float64 `json:"real_return"`
	TWRCumulative float64 `json:"twr_cumulative"`
}

// RealWealth restates net worth in baseline-month prices. ChangePctFromPrev
// is the fractional growth over the previous month's real value, zero for
// the first month and whenever that previous value is zero.
type RealWealth struct {
	NetWorthReal      float64 `json:"net_worth_real"`
	ChangePctFromPrev float64 `json:"change_pct_from_prev"`
}

// PurchasingPower is the cost-of-living view: the ECLI composite, the
// implied scale against the reference city, and net worth restated both
// against cost of living alone and against inflation plus cost of living.
type PurchasingPower struct {
	ECLI                float64 `json:"ecli"`
	ECLINorm            float64 `json:"ecli_norm"`
	Scale               float64 `json:"scale"`
	NYAdvantagePct      float64 `json:"ny_advantage_pct"`
	ColAdjustedNetWorth float64 `json:"col_adjusted_net_worth"`
	RealPurchasingPower float64 `json:"real_purchasing_power"`
}
