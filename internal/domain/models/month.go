package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields serialize as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// MonthInput is one monthly ledger document (database/YYYY_MM.json): raw
// balances and cash flows as entered, plus the FX table and index readings
// observed that month.
type MonthInput struct {
	Month           string             `json:"month"`
	FXRates         map[string]float64 `json:"fx_rates"`
	HICP            *float64           `json:"hicp,omitempty"`
	ECLI            *ECLIInput         `json:"ecli,omitempty"`
	CashFlowEntries []CashFlowEntry    `json:"cash_flow_entries"`
	NetWorthEntries []NetWorthEntry    `json:"net_worth_entries"`
}

// ECLIInput carries the month's expense-weighted cost-of-living readings.
type ECLIInput struct {
	RentIndex         *float64 `json:"rent_index,omitempty"`
	GroceriesIndex    *float64 `json:"groceries_index,omitempty"`
	CostOfLivingIndex *float64 `json:"cost_of_living_index,omitempty"`
}

// NetWorthEntry is a single account or holding balance.
type NetWorthEntry struct {
	Name     string          `json:"name" validate:"required"`
	Kind     string          `json:"type" validate:"required"`
	Currency string          `json:"currency" validate:"required"`
	Balance  decimal.Decimal `json:"balance"`
	Comment  string          `json:"comment,omitempty"`
}

// CashFlowEntry is a single income or expense item for the month.
type CashFlowEntry struct {
	Name     string          `json:"name" validate:"required"`
	Kind     string          `json:"type" validate:"required"`
	Currency string          `json:"currency" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Comment  string          `json:"comment,omitempty"`
}

// UnmarshalJSON accepts the legacy field spellings still present in older
// ledger files: "reference_month" for "month" and "cash-flow-entries" for
// "cash_flow_entries". The index value may arrive as a number or a numeric
// string; anything else reads as absent.
func (m *MonthInput) UnmarshalJSON(data []byte) error {
	var doc struct {
		Month           string             `json:"month"`
		ReferenceMonth  string             `json:"reference_month"`
		FXRates         map[string]float64 `json:"fx_rates"`
		HICP            json.RawMessage    `json:"hicp"`
		ECLI            *ECLIInput         `json:"ecli"`
		CashFlowEntries []CashFlowEntry    `json:"cash_flow_entries"`
		CashFlowDashed  []CashFlowEntry    `json:"cash-flow-entries"`
		NetWorthEntries []NetWorthEntry    `json:"net_worth_entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	m.Month = doc.Month
	if m.Month == "" {
		m.Month = doc.ReferenceMonth
	}
	m.FXRates = doc.FXRates
	m.HICP = parseIndexValue(doc.HICP)
	m.ECLI = doc.ECLI
	m.CashFlowEntries = doc.CashFlowEntries
	if m.CashFlowEntries == nil {
		m.CashFlowEntries = doc.CashFlowDashed
	}
	m.NetWorthEntries = doc.NetWorthEntries
	return nil
}

func parseIndexValue(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}
	return nil
}
