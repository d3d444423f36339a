package models

import "github.com/shopspring/decimal"

// EnrichedEntry is an audit view of a net worth entry with its base-currency
// value alongside the raw balance. A missing FX rate falls back to 1.0 here
// rather than failing; this endpoint exists to inspect imperfect data.
type EnrichedEntry struct {
	Name          string          `json:"name"`
	Kind          string          `json:"type"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	BalanceInBase decimal.Decimal `json:"balance_in_base"`
	Comment       string          `json:"comment"`
}

// EntryMetadata echoes the month context the enrichment used.
type EntryMetadata struct {
	ReferenceMonth string             `json:"reference_month"`
	FXRates        map[string]float64 `json:"fx_rates"`
	HICP           *float64           `json:"hicp,omitempty"`
}

type EnrichedEntries struct {
	Metadata EntryMetadata   `json:"metadata"`
	Entries  []EnrichedEntry `json:"entries"`
}
