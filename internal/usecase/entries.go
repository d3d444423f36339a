package usecase

import (
	"context"
	"fmt"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	"WorthWatch/internal/services/pipeline"
	"WorthWatch/pkg/util"
)

// EntriesUseCase serves the month-level audit views: the raw ledger document
// as stored on disk, and the enriched view with base-currency values.
type EntriesUseCase struct {
	ledger domrepo.Ledger
}

func NewEntriesUseCase(ledger domrepo.Ledger) *EntriesUseCase {
	return &EntriesUseCase{ledger: ledger}
}

// Raw returns the month document bytes exactly as stored.
func (uc *EntriesUseCase) Raw(ctx context.Context, month string) ([]byte, error) {
	key, err := util.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	raw, err := uc.ledger.LoadMonthRaw(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load month %s: %w", key, err)
	}
	return raw, nil
}

// Enriched converts every net worth entry of the month into the base
// currency, falling back to a 1.0 rate where the FX table has a gap.
func (uc *EntriesUseCase) Enriched(ctx context.Context, month string) (*models.EnrichedEntries, error) {
	key, err := util.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	settings, err := uc.ledger.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	in, err := uc.ledger.LoadMonth(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load month %s: %w", key, err)
	}
	return pipeline.EnrichEntries(settings, in), nil
}
