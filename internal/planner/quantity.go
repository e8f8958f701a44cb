package planner

import (
	"math"

	"gardencore/pkg/domain"
)

// DensityForSpread returns plants per 100 area units for an average mature spread.
func DensityForSpread(spread float64) float64 {
	switch {
	case spread <= 1:
		return 16
	case spread <= 3:
		return 4
	case spread <= 6:
		return 1
	default:
		return 0.25
	}
}

// Quantity recommends how many of a plant to place in an area; at least one,
// and at most math.MaxInt.
func Quantity(p domain.Plant, area float64) int {
	n := math.Floor(area / 100 * DensityForSpread(p.SpreadRange.Mean()))
	switch {
	case math.IsNaN(n) || n < 1:
		return 1
	case n >= float64(math.MaxInt):
		return math.MaxInt
	}
	return int(n)
}
