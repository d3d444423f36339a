package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"WorthWatch/internal/domain/models"
	"WorthWatch/pkg/util"
)

type validateCmd struct {
	ledgerDir string
}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "check settings and every month document for problems" }
func (*validateCmd) Usage() string {
	return `worthctl validate -ledger <dir>

  Validates settings.json and each database/YYYY_MM.json. Findings that
  would fail a dashboard build are errors; data-quality findings the build
  would tolerate are warnings. Exits non-zero when any error is found.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerDir, "ledger", ".", "ledger directory (settings.json + database/)")
}

func (c *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ledger := openLedger(c.ledgerDir)

	settings, err := ledger.LoadSettings(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	months, err := ledger.Months(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if len(months) == 0 {
		fmt.Println("ledger has no month documents")
		return subcommands.ExitSuccess
	}

	var report validationReport
	for _, m := range months {
		in, err := ledger.LoadMonth(ctx, m)
		if err != nil {
			report.errorf(m, "%v", err)
			continue
		}
		checkMonth(settings, in, &report)
	}

	for _, line := range report.lines {
		fmt.Println(line)
	}
	fmt.Printf("%d months checked, %d errors, %d warnings\n", len(months), report.errors, report.warnings)
	if report.errors > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type validationReport struct {
	lines    []string
	errors   int
	warnings int
}

func (r *validationReport) errorf(month, format string, args ...interface{}) {
	r.errors++
	r.lines = append(r.lines, fmt.Sprintf("ERROR %s: %s", month, fmt.Sprintf(format, args...)))
}

func (r *validationReport) warnf(month, format string, args ...interface{}) {
	r.warnings++
	r.lines = append(r.lines, fmt.Sprintf("WARN  %s: %s", month, fmt.Sprintf(format, args...)))
}

func checkMonth(settings *models.Settings, in *models.MonthInput, report *validationReport) {
	m := in.Month
	base := strings.ToUpper(settings.BaseCurrency)

	fx := make(map[string]float64, len(in.FXRates))
	for code, rate := range in.FXRates {
		fx[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	if rate, ok := fx[base]; !ok {
		report.warnf(m, "fx table does not list base currency %s (implicit 1.0 applies)", base)
	} else if rate != 1.0 {
		report.errorf(m, "fx rate for base currency %s is %v, must be 1.0", base, rate)
	}

	if settings.HICP.IsEnabled() && in.HICP == nil {
		report.errorf(m, "hicp index is absent but inflation normalization is enabled")
	}

	wealthKinds := kindSet(settings.Categories.Assets, settings.Categories.Liabilities)
	flowKinds := kindSet(settings.Categories.PositiveCashFlows, settings.Categories.NegativeCashFlows)

	for _, e := range in.NetWorthEntries {
		checkEntry(m, "net worth", e.Name, e.Kind, e.Currency, base, fx, wealthKinds, report)
	}
	for _, e := range in.CashFlowEntries {
		checkEntry(m, "cash flow", e.Name, e.Kind, e.Currency, base, fx, flowKinds, report)
	}
}

func checkEntry(month, group, name, kind, currency, base string, fx map[string]float64, kinds map[string]bool, report *validationReport) {
	if name == "" {
		report.errorf(month, "%s entry without a name", group)
		name = "(unnamed)"
	}
	if kind == "" {
		report.errorf(month, "%s entry %q has no type", group, name)
	} else if !kinds[util.CanonKey(kind)] {
		report.warnf(month, "%s entry %q has unmapped type %q", group, name, kind)
	}
	switch code := strings.ToUpper(strings.TrimSpace(currency)); {
	case code == "":
		report.errorf(month, "%s entry %q has no currency", group, name)
	case code != base:
		if _, ok := fx[code]; !ok {
			report.errorf(month, "%s entry %q: currency %s has no fx rate", group, name, code)
		}
	}
}

func kindSet(lists ...[]string) map[string]bool {
	set := map[string]bool{}
	for _, list := range lists {
		for _, kind := range list {
			set[util.CanonKey(kind)] = true
		}
	}
	return set
}
