package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"WorthWatch/internal/domain/models"
	"WorthWatch/internal/services/rates"
	"WorthWatch/pkg/config"
	"WorthWatch/pkg/util"
)

type rolloverCmd struct {
	ledgerDir  string
	keepRates  bool
	fetchRates bool
	ratesURL   string
	force      bool
}

func (*rolloverCmd) Name() string     { return "rollover" }
func (*rolloverCmd) Synopsis() string { return "start the next month from the latest one" }
func (*rolloverCmd) Usage() string {
	return `worthctl rollover -ledger <dir> [-keep-rates] [-fetch-rates -rates-url <url>] [-force]

  Creates the next month's document from the latest one: net worth entries
  carry over as the starting balances, cash flow entries reset to empty.
  The FX table and index carry over only with -keep-rates; -fetch-rates
  replaces the FX table with fresh provider rates instead (RATES_API_KEY is
  read from the environment when the provider needs one).
`
}

func (c *rolloverCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerDir, "ledger", ".", "ledger directory (settings.json + database/)")
	f.BoolVar(&c.keepRates, "keep-rates", false, "carry the fx table and hicp index over")
	f.BoolVar(&c.fetchRates, "fetch-rates", false, "fetch the new month's fx table from the rates provider")
	f.StringVar(&c.ratesURL, "rates-url", "https://api.frankfurter.dev/v1", "rates provider base URL for -fetch-rates")
	f.BoolVar(&c.force, "force", false, "overwrite the next month's document if it already exists")
}

func (c *rolloverCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
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
		fail("ledger has no month documents to roll over from")
		return subcommands.ExitFailure
	}

	latest := months[len(months)-1]
	next, err := util.NextMonth(latest)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if _, err := ledger.LoadMonthRaw(ctx, next); err == nil && !c.force {
		fail("month %s already exists (use -force to overwrite)", next)
		return subcommands.ExitFailure
	}

	prev, err := ledger.LoadMonth(ctx, latest)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	doc := &models.MonthInput{
		Month:           next,
		FXRates:         map[string]float64{},
		CashFlowEntries: []models.CashFlowEntry{},
		NetWorthEntries: prev.NetWorthEntries,
	}
	if c.keepRates {
		doc.FXRates = prev.FXRates
		doc.HICP = prev.HICP
	}
	if c.fetchRates {
		cfg := &config.Config{}
		cfg.Rates.Enabled = true
		cfg.Rates.BaseURL = c.ratesURL
		cfg.Rates.APIKey = os.Getenv("RATES_API_KEY")
		cfg.Rates.Timeout = 15 * time.Second

		fetched, err := rates.NewClient(cfg, nil).FetchRates(ctx, settings.BaseCurrency, next)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		doc.FXRates = fetched
	}

	if err := ledger.SaveMonth(ctx, doc); err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("created %s from %s (%d net worth entries", next, latest, len(doc.NetWorthEntries))
	if len(doc.FXRates) > 0 {
		fmt.Printf(", %d fx rates", len(doc.FXRates))
	}
	fmt.Println(")")
	return subcommands.ExitSuccess
}
