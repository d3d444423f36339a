package pipeline

import (
	"fmt"
	"math"

	"WorthWatch/internal/domain/models"
	"WorthWatch/pkg/util"
)

// realNetWorth deflates a nominal net worth into baseline-month prices:
// deflator = base_value / index(month). The index is required whenever
// inflation normalization is enabled; a silent passthrough would make real
// and nominal series indistinguishable.
func realNetWorth(hicp models.HICPSettings, month string, index *float64, netWorth float64) (float64, error) {
	if index == nil {
		return 0, &MissingIndexError{Month: month}
	}
	if *index == 0 {
		return 0, &MalformedMonthError{Month: month, Reason: "hicp index is zero"}
	}
	deflator := hicp.BaseValue / *index
	return util.Round2(netWorth * deflator), nil
}

// changePct is the fractional month-over-month real growth. Zero for the
// first month and whenever the previous value is zero.
func changePct(prev *float64, cur float64) float64 {
	if prev == nil || *prev == 0 {
		return 0
	}
	return util.Round4(cur / *prev - 1)
}

// lowECLIThreshold flags composite readings that almost certainly mean a
// data entry slip (indices are ~100-scaled).
const lowECLIThreshold = 0.2

// purchasingPower computes the expense-weighted cost-of-living view. Months
// without a complete set of readings simply omit the record.
func purchasingPower(col *models.CostOfLivingSettings, in *models.ECLIInput, netWorth float64, netWorthReal *float64) (*models.PurchasingPower, []string) {
	if col == nil || !col.Enabled || in == nil {
		return nil, nil
	}
	if in.RentIndex == nil || in.GroceriesIndex == nil || in.CostOfLivingIndex == nil {
		return nil, nil
	}

	w := col.Weights
	if w.Rent+w.Groceries+w.CostOfLiving == 0 {
		w = models.ECLIWeights{Rent: 0.40, Groceries: 0.35, CostOfLiving: 0.25}
	}

	ecli := w.Rent*(*in.RentIndex) + w.Groceries*(*in.GroceriesIndex) + w.CostOfLiving*(*in.CostOfLivingIndex)
	norm := ecli / 100
	if math.Abs(norm) < 1e-9 {
		norm = 1.0
	}

	var warnings []string
	if norm < lowECLIThreshold {
		warnings = append(warnings, fmt.Sprintf("ecli_norm %.4f is suspiciously low: check cost-of-living inputs", norm))
	}

	scale := 1 / norm
	anchor := netWorth
	if netWorthReal != nil {
		anchor = *netWorthReal
	}
	return &models.PurchasingPower{
		ECLI:                util.Round2(ecli),
		ECLINorm:            util.Round4(norm),
		Scale:               util.Round4(scale),
		NYAdvantagePct:      util.Round2((scale - 1) * 100),
		ColAdjustedNetWorth: util.Round2(netWorth * scale),
		RealPurchasingPower: util.Round2(anchor * scale),
	}, warnings
}
