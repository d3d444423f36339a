package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"WorthWatch/internal/domain/models"
	applogger "WorthWatch/pkg/logger"
	"WorthWatch/pkg/util"
)

// Options carries per-build parameters. Now is the clock behind
// metadata.generated_at; injecting it keeps builds reproducible, which the
// HTTP layer relies on for ETags.
type Options struct {
	Now time.Time
}

// Builder runs the whole normalization pipeline over a ledger: currency
// conversion, category and cash flow aggregation, inflation and
// cost-of-living normalization, performance, and yearly rollups.
//
// Builds are all-or-nothing. Anything that would change totals silently
// (unknown currency, missing index, duplicate month) fails the build;
// anything that only narrows coverage (unmapped category) becomes a
// warning on the affected snapshot.
type Builder struct {
	log *applogger.Logger
}

func NewBuilder(log *applogger.Logger) *Builder {
	return &Builder{log: log}
}

// monthResult is everything computable for a month in isolation. The
// sequential parts (returns, change over previous month) fold afterwards.
type monthResult struct {
	input        *models.MonthInput
	totals       models.Totals
	byCategory   models.ByCategory
	cashFlow     models.CashFlow
	netWorthReal *float64
	index        *float64
	pp           *models.PurchasingPower
	warnings     []string
}

func (b *Builder) Build(ctx context.Context, settings *models.Settings, months []*models.MonthInput, opts Options) (*models.Dashboard, error) {
	started := time.Now()

	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if settings.BaseCurrency == "" {
		return nil, fmt.Errorf("settings.base_currency is required")
	}
	hicpEnabled := settings.HICP.IsEnabled()
	if hicpEnabled && settings.HICP.BaseValue <= 0 {
		return nil, fmt.Errorf("settings.hicp.base_value must be positive when hicp is enabled")
	}

	ordered, err := orderMonths(months)
	if err != nil {
		return nil, err
	}

	// Per-month stages are independent, so they run concurrently into an
	// index-addressed slice; the fold below needs them in order anyway.
	idx := newBucketIndex(settings.Categories)
	results := make([]monthResult, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range ordered {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := b.computeMonth(settings, idx, m, hicpEnabled)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tracker := newPerformanceTracker(settings.Performance.ExternalFlowSource)
	snapshots := make([]models.Snapshot, 0, len(results))
	var prevReal *float64
	for _, res := range results {
		perf, perfWarns := tracker.Advance(res.totals.NetWorth, res.cashFlow.NetCashFlow, res.index)
		snap := models.Snapshot{
			Month:           res.input.Month,
			FXRates:         res.input.FXRates,
			HICP:            res.input.HICP,
			Totals:          res.totals,
			ByCategory:      res.byCategory,
			CashFlow:        res.cashFlow,
			Performance:     perf,
			PurchasingPower: res.pp,
			Warnings:        append(res.warnings, perfWarns...),
		}
		if res.netWorthReal != nil {
			snap.RealWealth = &models.RealWealth{
				NetWorthReal:      *res.netWorthReal,
				ChangePctFromPrev: changePct(prevReal, *res.netWorthReal),
			}
			prevReal = res.netWorthReal
		}
		snapshots = append(snapshots, snap)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	dash := &models.Dashboard{
		Metadata: models.Metadata{
			GeneratedAt:     now.UTC().Format(time.RFC3339),
			SettingsVersion: settings.SettingsVersion,
			BaseCurrency:    settings.BaseCurrency,
		},
		YearlyStats: yearlyStats(snapshots),
		Snapshots:   snapshots,
	}

	if b.log != nil {
		b.log.Info("dashboard built",
			applogger.Int("months", len(snapshots)),
			applogger.Duration("took", time.Since(started)),
		)
	}
	return dash, nil
}

func (b *Builder) computeMonth(settings *models.Settings, idx *bucketIndex, in *models.MonthInput, hicpEnabled bool) (monthResult, error) {
	conv := newConverter(in.Month, settings.BaseCurrency, in.FXRates)

	totals, byCat, wealthWarns, err := aggregateWealth(conv, idx, in.NetWorthEntries)
	if err != nil {
		return monthResult{}, err
	}
	cashFlow, cashWarns, err := aggregateCashFlow(conv, idx, in.CashFlowEntries)
	if err != nil {
		return monthResult{}, err
	}

	res := monthResult{
		input:      in,
		totals:     totals,
		byCategory: byCat,
		cashFlow:   cashFlow,
		warnings:   append(wealthWarns, cashWarns...),
	}
	if hicpEnabled {
		real, err := realNetWorth(settings.HICP, in.Month, in.HICP, totals.NetWorth)
		if err != nil {
			return monthResult{}, err
		}
		res.netWorthReal = &real
		res.index = in.HICP
	}
	pp, ppWarns := purchasingPower(settings.CostOfLiving, in.ECLI, totals.NetWorth, res.netWorthReal)
	res.pp = pp
	res.warnings = append(res.warnings, ppWarns...)
	return res, nil
}

// orderMonths validates month keys, rejects duplicates, and returns the
// inputs in ascending month order. Keys are normalized copies; callers'
// documents are never mutated.
func orderMonths(months []*models.MonthInput) ([]*models.MonthInput, error) {
	seen := make(map[string]bool, len(months))
	ordered := make([]*models.MonthInput, 0, len(months))
	for _, m := range months {
		if m == nil {
			continue
		}
		key, err := util.ParseMonth(m.Month)
		if err != nil {
			return nil, &MalformedMonthError{Month: m.Month, Reason: "month key must be YYYY-MM"}
		}
		if seen[key] {
			return nil, &DuplicateMonthError{Month: key}
		}
		seen[key] = true
		norm := *m
		norm.Month = key
		ordered = append(ordered, &norm)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Month < ordered[j].Month })
	return ordered, nil
}
