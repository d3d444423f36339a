package util

import "math"

// Round2 rounds to cents. Money leaves every aggregation stage rounded
// so downstream consumers never see float dust.
func Round2(v float64) float64 {
    return math.Round(v*100) / 100
}

// Round4 rounds ratios (returns, rates) to four decimal places.
func Round4(v float64) float64 {
    return math.Round(v*10000) / 10000
}
