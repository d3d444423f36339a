package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"WorthWatch/internal/domain/models"
	"WorthWatch/internal/services/pipeline"
)

type buildCmd struct {
	ledgerDir string
	out       string
}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "run the snapshot pipeline and emit the dashboard JSON" }
func (*buildCmd) Usage() string {
	return `worthctl build -ledger <dir> [-out <file>]

  Runs the full normalization pipeline over the ledger and writes the
  dashboard document to stdout or -out. Snapshot warnings go to stderr;
  a fatal pipeline error exits non-zero with no output.
`
}

func (c *buildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerDir, "ledger", ".", "ledger directory (settings.json + database/)")
	f.StringVar(&c.out, "out", "", "write the dashboard to this file instead of stdout")
}

func (c *buildCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	dash, status := buildDashboard(ctx, c.ledgerDir)
	if status != subcommands.ExitSuccess {
		return status
	}

	for _, s := range dash.Snapshots {
		for _, w := range s.Warnings {
			fmt.Fprintf(os.Stderr, "warning %s: %s\n", s.Month, w)
		}
	}

	b, err := json.MarshalIndent(dash, "", "  ")
	if err != nil {
		fail("encode dashboard: %v", err)
		return subcommands.ExitFailure
	}
	b = append(b, '\n')

	if c.out == "" {
		os.Stdout.Write(b)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.out, b, 0o644); err != nil {
		fail("write %s: %v", c.out, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d snapshots)\n", c.out, len(dash.Snapshots))
	return subcommands.ExitSuccess
}

// buildDashboard loads a ledger and runs the pipeline once, offline.
func buildDashboard(ctx context.Context, dir string) (*models.Dashboard, subcommands.ExitStatus) {
	ledger := openLedger(dir)

	settings, err := ledger.LoadSettings(ctx)
	if err != nil {
		fail("%v", err)
		return nil, subcommands.ExitFailure
	}
	keys, err := ledger.Months(ctx)
	if err != nil {
		fail("%v", err)
		return nil, subcommands.ExitFailure
	}
	months := make([]*models.MonthInput, 0, len(keys))
	for _, key := range keys {
		m, err := ledger.LoadMonth(ctx, key)
		if err != nil {
			fail("%v", err)
			return nil, subcommands.ExitFailure
		}
		months = append(months, m)
	}

	dash, err := pipeline.NewBuilder(nil).Build(ctx, settings, months, pipeline.Options{Now: time.Now()})
	if err != nil {
		fail("%v", err)
		return nil, subcommands.ExitFailure
	}
	return dash, subcommands.ExitSuccess
}
