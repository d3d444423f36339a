package models

// Settings is the ledger-wide configuration document (settings.json). It
// declares the base currency, the category buckets, and which normalizations
// run during a dashboard build.
type Settings struct {
	SettingsVersion int                   `json:"settings_version" validate:"required,gte=1"`
	BaseCurrency    string                `json:"base_currency" validate:"required,len=3"`
	HICP            HICPSettings          `json:"hicp"`
	Performance     PerformanceSettings   `json:"performance"`
	CostOfLiving    *CostOfLivingSettings `json:"cost_of_living,omitempty"`
	Categories      Categories            `json:"categories" validate:"required"`
}

// HICPSettings anchors the inflation baseline. The deflator for a month is
// base_value / index(month), so real figures are expressed in the baseline
// month's prices.
type HICPSettings struct {
	Enabled   *bool   `json:"enabled,omitempty" default:"true"`
	BaseYear  int     `json:"base_year" validate:"gte=0"`
	BaseMonth int     `json:"base_month" validate:"gte=0,lte=12"`
	BaseValue float64 `json:"base_value" validate:"gte=0"`
}

// IsEnabled treats an absent flag as on; inflation normalization is opt-out.
func (h HICPSettings) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

type PerformanceSettings struct {
	// ExternalFlowSource picks what counts as external inflow when computing
	// monthly returns: "net_cash_flow" (default) or "none".
	ExternalFlowSource string `json:"external_flow_source,omitempty" default:"net_cash_flow" validate:"omitempty,oneof=net_cash_flow none"`
}

// CostOfLivingSettings configures the expense-weighted cost-of-living index
// (ECLI) adjustment. Weights should sum to 1.
type CostOfLivingSettings struct {
	Enabled bool        `json:"enabled"`
	Weights ECLIWeights `json:"weights"`
}

type ECLIWeights struct {
	Rent         float64 `json:"rent" default:"0.40"`
	Groceries    float64 `json:"groceries" default:"0.35"`
	CostOfLiving float64 `json:"cost_of_living" default:"0.25"`
}

// Categories maps entry kinds into aggregation buckets. Matching is
// case-insensitive; the configured casing is what snapshots report.
type Categories struct {
	Assets            []string `json:"assets" validate:"required,min=1"`
	Liabilities       []string `json:"liabilities"`
	PositiveCashFlows []string `json:"positive_cash_flows" validate:"required,min=1"`
	NegativeCashFlows []string `json:"negative_cash_flows" validate:"required,min=1"`
}
