package pipeline

import (
	"WorthWatch/internal/domain/models"
	"WorthWatch/pkg/util"
)

// flow source values accepted by settings.performance.external_flow_source.
const (
	flowSourceNetCashFlow = "net_cash_flow"
	flowSourceNone        = "none"
)

// performanceTracker folds monthly returns across the snapshot sequence.
// Returns are flow-adjusted: money added to the portfolio is not growth.
// The cumulative time-weighted return chains unrounded real returns and is
// rounded only on emit.
type performanceTracker struct {
	flowSource string
	prevNW     *float64
	prevIndex  *float64
	twr        float64
}

func newPerformanceTracker(flowSource string) *performanceTracker {
	if flowSource == "" {
		flowSource = flowSourceNetCashFlow
	}
	return &performanceTracker{flowSource: flowSource, twr: 1}
}

// Advance consumes one month in ascending order and returns its performance
// record. The first month has no basis, so its returns are zero and the
// cumulative TWR stays at 1.
func (p *performanceTracker) Advance(netWorth, netCashFlow float64, index *float64) (models.Performance, []string) {
	var (
		nominal  float64
		real     float64
		warnings []string
	)

	switch {
	case p.prevNW == nil:
		// first month: no previous value to measure against
	case *p.prevNW == 0:
		warnings = append(warnings, "previous net worth is zero: returns set to 0")
	default:
		inflow := 0.0
		if p.flowSource == flowSourceNetCashFlow {
			inflow = netCashFlow
		}
		nominal = (netWorth - *p.prevNW - inflow) / *p.prevNW
		real = nominal - p.inflationRate(index)
		p.twr *= 1 + real
	}

	p.prevNW = &netWorth
	p.prevIndex = index

	return models.Performance{
		NominalReturn: util.Round4(nominal),
		RealReturn:    util.Round4(real),
		TWRCumulative: util.Round4(p.twr),
	}, warnings
}

// inflationRate is the month-over-month index change, zero when either
// reading is unavailable.
func (p *performanceTracker) inflationRate(index *float64) float64 {
	if index == nil || p.prevIndex == nil || *p.prevIndex == 0 {
		return 0
	}
	return *index / *p.prevIndex - 1
}
