package pipeline

import (
	"github.com/shopspring/decimal"

	"WorthWatch/internal/domain/models"
	"WorthWatch/pkg/util"
)

// aggregateCashFlow folds the month's cash flow entries into income and
// expense magnitudes. Save rate is net over income, and zero for months
// with no positive income so a no-income month never reports a ratio.
func aggregateCashFlow(conv *converter, idx *bucketIndex, entries []models.CashFlowEntry) (models.CashFlow, []string, error) {
	var (
		income   = decimal.Zero
		expenses = decimal.Zero
		warnings []string
	)

	for _, e := range entries {
		value, err := conv.toBase(e.Currency, e.Amount)
		if err != nil {
			return models.CashFlow{}, nil, err
		}
		kind := util.CanonKey(e.Kind)
		if _, ok := idx.positive[kind]; ok {
			income = income.Add(value)
			continue
		}
		if _, ok := idx.negative[kind]; ok {
			expenses = expenses.Add(value)
			continue
		}
		warn := &UnmappedCategoryError{Month: conv.month, Kind: e.Kind, Entry: e.Name}
		warnings = append(warnings, warn.Error())
	}

	// Expenses are reported as a magnitude regardless of how the entries were
	// signed; income keeps its signed sum so a refund-heavy month stays
	// visible as negative income.
	incomeR := income.Round(2)
	expensesR := expenses.Abs().Round(2)
	netR := incomeR.Sub(expensesR)

	cf := models.CashFlow{
		Income:      incomeR.InexactFloat64(),
		Expenses:    expensesR.InexactFloat64(),
		NetCashFlow: netR.InexactFloat64(),
	}
	if incomeR.IsPositive() {
		cf.SaveRate = netR.Div(incomeR).Round(4).InexactFloat64()
	}
	return cf, warnings, nil
}
