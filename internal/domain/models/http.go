package models

// Requests and responses for the dashboard HTTP endpoints. Defined in domain
// for consistency and reuse.

type SummaryRequest struct {
	View string `query:"view" json:"view" default:"nominal" validate:"omitempty,oneof=nominal real purchasing_power inflation_adjusted real_purchasing_power"`
}

type MonthRequest struct {
	Month string `param:"month" json:"month" validate:"required"`
}

type RatesRefreshRequest struct {
	Month string `param:"month" json:"month" validate:"required"`
	Base  string `query:"base" json:"base" validate:"omitempty,len=3"`
}

// SummaryResponse is the compact "how am I doing" answer: just the latest
// snapshot with the metadata needed to interpret it.
type SummaryResponse struct {
	GeneratedAt  string    `json:"generated_at"`
	BaseCurrency string    `json:"base_currency"`
	View         string    `json:"view"`
	Latest       *Snapshot `json:"latest"`
}
