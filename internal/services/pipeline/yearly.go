package pipeline

import (
	"sort"

	"WorthWatch/internal/domain/models"
	"WorthWatch/pkg/util"
)

// yearlyStats rolls snapshot cash flow up per calendar year, in ascending
// year order. Partial years aggregate whatever months are present.
func yearlyStats(snapshots []models.Snapshot) []models.YearlyStats {
	byYear := map[int]*models.YearlyStats{}
	var years []int

	for _, s := range snapshots {
		year := util.YearOf(s.Month)
		stats, ok := byYear[year]
		if !ok {
			stats = &models.YearlyStats{Year: year}
			byYear[year] = stats
			years = append(years, year)
		}
		stats.MonthsCount++
		stats.TotalIncome += s.CashFlow.Income
		stats.TotalExpenses += s.CashFlow.Expenses
		stats.TotalSavings += s.CashFlow.NetCashFlow
		stats.AverageSaveRate += s.CashFlow.SaveRate
	}

	sort.Ints(years)
	out := make([]models.YearlyStats, 0, len(years))
	for _, year := range years {
		stats := byYear[year]
		stats.TotalIncome = util.Round2(stats.TotalIncome)
		stats.TotalExpenses = util.Round2(stats.TotalExpenses)
		stats.TotalSavings = util.Round2(stats.TotalSavings)
		stats.AverageSaveRate = util.Round4(stats.AverageSaveRate / float64(stats.MonthsCount))
		out = append(out, *stats)
	}
	return out
}
