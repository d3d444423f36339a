package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"

	"WorthWatch/internal/domain/models"
)

// converter resolves one month's FX table. Currency codes are matched
// case-insensitively; the base currency is implicitly 1.0 when the table
// does not list it.
type converter struct {
	month string
	base  string
	rates map[string]float64 // upper-cased codes
}

func newConverter(month, base string, fx map[string]float64) *converter {
	rates := make(map[string]float64, len(fx))
	for code, rate := range fx {
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return &converter{
		month: month,
		base:  strings.ToUpper(strings.TrimSpace(base)),
		rates: rates,
	}
}

// toBase converts an amount into the base currency. Unknown currencies are
// fatal; there is no defensible default rate.
func (c *converter) toBase(currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	rate, ok := c.rates[code]
	if !ok {
		if code == c.base {
			return amount, nil
		}
		return decimal.Zero, &MissingRateError{Month: c.month, Currency: code}
	}
	return amount.Mul(decimal.NewFromFloat(rate)), nil
}

// rateFor is the lenient variant used by audit views: missing rates fall
// back to 1.0 instead of failing.
func (c *converter) rateFor(currency string) float64 {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if rate, ok := c.rates[code]; ok {
		return rate
	}
	return 1.0
}

// EnrichEntries builds the audit view of a month: every net worth entry with
// its base-currency value next to the raw balance. Unlike a build, a missing
// rate is not fatal here; it falls back to 1.0 so broken months can still be
// inspected.
func EnrichEntries(settings *models.Settings, in *models.MonthInput) *models.EnrichedEntries {
	conv := newConverter(in.Month, settings.BaseCurrency, in.FXRates)
	out := &models.EnrichedEntries{
		Metadata: models.EntryMetadata{
			ReferenceMonth: in.Month,
			FXRates:        in.FXRates,
			HICP:           in.HICP,
		},
		Entries: make([]models.EnrichedEntry, 0, len(in.NetWorthEntries)),
	}
	for _, e := range in.NetWorthEntries {
		rate := conv.rateFor(e.Currency)
		out.Entries = append(out.Entries, models.EnrichedEntry{
			Name:          e.Name,
			Kind:          e.Kind,
			Currency:      e.Currency,
			Balance:       e.Balance,
			BalanceInBase: e.Balance.Mul(decimal.NewFromFloat(rate)).Round(2),
			Comment:       e.Comment,
		})
	}
	return out
}
