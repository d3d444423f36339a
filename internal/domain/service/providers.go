package service

import "context"

// RateSource fetches a month's FX table from an external provider. Rates
// are quoted against the given base, which maps to 1.0 in the result.
type RateSource interface {
	FetchRates(ctx context.Context, base, month string) (map[string]float64, error)
}
