package pipeline

import (
	"github.com/shopspring/decimal"

	"WorthWatch/internal/domain/models"
	"WorthWatch/pkg/util"
)

// bucketIndex resolves an entry kind to its bucket and to the casing the
// settings configured, which is the casing snapshots report.
type bucketIndex struct {
	assets      map[string]string // canon kind -> configured name
	liabilities map[string]string
	positive    map[string]string
	negative    map[string]string
}

func newBucketIndex(cats models.Categories) *bucketIndex {
	idx := &bucketIndex{
		assets:      make(map[string]string, len(cats.Assets)),
		liabilities: make(map[string]string, len(cats.Liabilities)),
		positive:    make(map[string]string, len(cats.PositiveCashFlows)),
		negative:    make(map[string]string, len(cats.NegativeCashFlows)),
	}
	for _, name := range cats.Assets {
		idx.assets[util.CanonKey(name)] = name
	}
	for _, name := range cats.Liabilities {
		idx.liabilities[util.CanonKey(name)] = name
	}
	for _, name := range cats.PositiveCashFlows {
		idx.positive[util.CanonKey(name)] = name
	}
	for _, name := range cats.NegativeCashFlows {
		idx.negative[util.CanonKey(name)] = name
	}
	return idx
}

// aggregateWealth folds net worth entries into asset and liability totals in
// the base currency. Entries with an unmapped kind are excluded and noted as
// warnings; a missing FX rate aborts the build.
func aggregateWealth(conv *converter, idx *bucketIndex, entries []models.NetWorthEntry) (models.Totals, models.ByCategory, []string, error) {
	var (
		assets      = decimal.Zero
		liabilities = decimal.Zero
		byAssets    = map[string]decimal.Decimal{}
		byLiabs     = map[string]decimal.Decimal{}
		warnings    []string
	)

	for _, e := range entries {
		value, err := conv.toBase(e.Currency, e.Balance)
		if err != nil {
			return models.Totals{}, models.ByCategory{}, nil, err
		}
		kind := util.CanonKey(e.Kind)
		if name, ok := idx.assets[kind]; ok {
			assets = assets.Add(value)
			byAssets[name] = byAssets[name].Add(value)
			continue
		}
		if name, ok := idx.liabilities[kind]; ok {
			liabilities = liabilities.Add(value)
			byLiabs[name] = byLiabs[name].Add(value)
			continue
		}
		warn := &UnmappedCategoryError{Month: conv.month, Kind: e.Kind, Entry: e.Name}
		warnings = append(warnings, warn.Error())
	}

	// Round at the stage boundary. Net worth is recomputed from the rounded
	// totals so the emitted triple always reconciles.
	assetsR := assets.Round(2)
	liabsR := liabilities.Round(2)
	totals := models.Totals{
		Assets:      assetsR.InexactFloat64(),
		Liabilities: liabsR.InexactFloat64(),
		NetWorth:    assetsR.Sub(liabsR).InexactFloat64(),
	}
	return totals, models.ByCategory{
		Assets:      roundCategoryMap(byAssets),
		Liabilities: roundCategoryMap(byLiabs),
	}, warnings, nil
}

func roundCategoryMap(m map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for name, v := range m {
		out[name] = v.Round(2).InexactFloat64()
	}
	return out
}
