package usecase

import (
	"context"
	"fmt"

	domrepo "WorthWatch/internal/domain/repository"
	domsvc "WorthWatch/internal/domain/service"
	applogger "WorthWatch/pkg/logger"
	"WorthWatch/pkg/util"
)

// RatesUseCase patches a month's FX table with rates from the external
// provider. The ledger file is rewritten and the cached dashboard dropped;
// the next read rebuilds with the fresh rates.
type RatesUseCase struct {
	ledger    domrepo.Ledger
	source    domsvc.RateSource
	dashboard *DashboardUseCase
	log       *applogger.Logger
}

func NewRatesUseCase(ledger domrepo.Ledger, source domsvc.RateSource, dashboard *DashboardUseCase, log *applogger.Logger) *RatesUseCase {
	return &RatesUseCase{ledger: ledger, source: source, dashboard: dashboard, log: log}
}

// RefreshMonth fetches provider rates for the month and saves them into the
// month document. An empty base falls back to the ledger's base currency.
func (uc *RatesUseCase) RefreshMonth(ctx context.Context, month, base string) (map[string]float64, error) {
	if uc.source == nil {
		return nil, fmt.Errorf("rates provider not configured")
	}
	key, err := util.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	if base == "" {
		settings, err := uc.ledger.LoadSettings(ctx)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		base = settings.BaseCurrency
	}
	in, err := uc.ledger.LoadMonth(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load month %s: %w", key, err)
	}
	rates, err := uc.source.FetchRates(ctx, base, key)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", key, err)
	}
	in.FXRates = rates
	if err := uc.ledger.SaveMonth(ctx, in); err != nil {
		return nil, fmt.Errorf("save month %s: %w", key, err)
	}
	if uc.dashboard != nil {
		if err := uc.dashboard.Invalidate(ctx); err != nil && uc.log != nil {
			uc.log.Warn("invalidate after rates refresh failed", applogger.Error(err))
		}
	}
	if uc.log != nil {
		uc.log.Info("fx rates refreshed",
			applogger.String("month", key),
			applogger.String("base", base),
			applogger.Int("currencies", len(rates)))
	}
	return rates, nil
}
