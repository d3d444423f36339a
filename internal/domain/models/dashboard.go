package models

// Dashboard is the complete build output: snapshots in ascending month
// order plus per-year rollups. Builds are deterministic, so two runs over
// the same ledger with the same clock produce byte-identical documents.
type Dashboard struct {
	Metadata    Metadata      `json:"metadata"`
	YearlyStats []YearlyStats `json:"yearly_stats"`
	Snapshots   []Snapshot    `json:"snapshots"`
}

type Metadata struct {
	GeneratedAt     string `json:"generated_at"`
	SettingsVersion int    `json:"settings_version"`
	BaseCurrency    string `json:"base_currency"`
}

// YearlyStats aggregates cash flow over the calendar year's present months.
type YearlyStats struct {
	Year            int     `json:"year"`
	MonthsCount     int     `json:"months_count"`
	TotalIncome     float64 `json:"total_income"`
	TotalExpenses   float64 `json:"total_expenses"`
	TotalSavings    float64 `json:"total_savings"`
	AverageSaveRate float64 `json:"average_save_rate"`
}

// Latest returns the most recent snapshot, nil when the ledger is empty.
func (d *Dashboard) Latest() *Snapshot {
	if d == nil || len(d.Snapshots) == 0 {
		return nil
	}
	return &d.Snapshots[len(d.Snapshots)-1]
}

// Event is the payload published when a dashboard state change happens
// (rebuild finished, month ingested, cache invalidated).
type Event struct {
	Event          string   `json:"event"`
	Month          string   `json:"month,omitempty"`
	GeneratedAt    string   `json:"generated_at,omitempty"`
	Months         int      `json:"months,omitempty"`
	NetWorthLatest *float64 `json:"net_worth_latest,omitempty"`
}
