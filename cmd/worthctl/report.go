package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"WorthWatch/internal/domain/models"
)

type reportCmd struct {
	ledgerDir string
	months    int
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "render a net worth report in the terminal" }
func (*reportCmd) Usage() string {
	return `worthctl report -ledger <dir> [-n <months>]

  Runs the pipeline and renders a markdown report: the latest snapshot,
  recent months, and the yearly rollups.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerDir, "ledger", ".", "ledger directory (settings.json + database/)")
	f.IntVar(&c.months, "n", 12, "number of recent months to list")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	dash, status := buildDashboard(ctx, c.ledgerDir)
	if status != subcommands.ExitSuccess {
		return status
	}
	if len(dash.Snapshots) == 0 {
		fmt.Println("ledger has no month documents")
		return subcommands.ExitSuccess
	}
	printMarkdown(reportMarkdown(dash, c.months))
	return subcommands.ExitSuccess
}

func reportMarkdown(dash *models.Dashboard, months int) string {
	var b strings.Builder
	cur := dash.Metadata.BaseCurrency
	latest := dash.Latest()

	fmt.Fprintf(&b, "# Net Worth — %s\n\n", latest.Month)
	fmt.Fprintf(&b, "| | %s |\n|---|---:|\n", cur)
	fmt.Fprintf(&b, "| Assets | %.2f |\n", latest.Totals.Assets)
	fmt.Fprintf(&b, "| Liabilities | %.2f |\n", latest.Totals.Liabilities)
	fmt.Fprintf(&b, "| **Net worth** | **%.2f** |\n", latest.Totals.NetWorth)
	if latest.RealWealth != nil {
		fmt.Fprintf(&b, "| Real (baseline prices) | %.2f |\n", latest.RealWealth.NetWorthReal)
	}
	if latest.PurchasingPower != nil {
		fmt.Fprintf(&b, "| Purchasing power | %.2f |\n", latest.PurchasingPower.RealPurchasingPower)
	}
	fmt.Fprintf(&b, "| Cumulative TWR | %.4f |\n", latest.Performance.TWRCumulative)

	b.WriteString("\n## Recent months\n\n")
	b.WriteString("| Month | Net worth | Income | Expenses | Save rate | Real return |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	start := len(dash.Snapshots) - months
	if start < 0 {
		start = 0
	}
	for _, s := range dash.Snapshots[start:] {
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.1f%% | %.2f%% |\n",
			s.Month, s.Totals.NetWorth, s.CashFlow.Income, s.CashFlow.Expenses,
			s.CashFlow.SaveRate*100, s.Performance.RealReturn*100)
	}

	b.WriteString("\n## Years\n\n")
	b.WriteString("| Year | Months | Income | Expenses | Savings | Avg save rate |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	for _, y := range dash.YearlyStats {
		fmt.Fprintf(&b, "| %d | %d | %.2f | %.2f | %.2f | %.1f%% |\n",
			y.Year, y.MonthsCount, y.TotalIncome, y.TotalExpenses, y.TotalSavings, y.AverageSaveRate*100)
	}

	warned := 0
	for _, s := range dash.Snapshots {
		warned += len(s.Warnings)
	}
	if warned > 0 {
		fmt.Fprintf(&b, "\n%d warnings across the history; run `worthctl validate` for details.\n", warned)
	}
	return b.String()
}
