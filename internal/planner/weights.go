package planner

import (
	"fmt"
	"math"
)

// Dimension names one scoring factor.
type Dimension string

// Scoring dimensions shared by the suitability evaluator and the zone scorer.
const (
	DimensionZone        Dimension = "zone_compatibility"
	DimensionSoil        Dimension = "soil_compatibility"
	DimensionSun         Dimension = "sun_requirements"
	DimensionWater       Dimension = "water_needs"
	DimensionNative      Dimension = "native_preference"
	DimensionMaintenance Dimension = "maintenance_level"
	DimensionAesthetic   Dimension = "aesthetic_value"
)

// dimensionOrder fixes summation order so float results never depend on map iteration.
var dimensionOrder = []Dimension{
	DimensionZone,
	DimensionSoil,
	DimensionSun,
	DimensionWater,
	DimensionNative,
	DimensionMaintenance,
	DimensionAesthetic,
}

// WeightTable maps a dimension to its weight.
type WeightTable map[Dimension]float64

// Sum adds weight×hit×scale for every dimension with a non-zero hit. A hit of
// 1 counts the full weight; fractional hits count partially.
func (t WeightTable) Sum(hits map[Dimension]float64, scale float64) float64 {
	var total float64
	for _, d := range dimensionOrder {
		h, ok := hits[d]
		if !ok || h == 0 {
			continue
		}
		total += t[d] * h * scale
	}
	return total
}

// Weights holds both scoring tables. Suitability is expressed in points on the
// 0-100 scale; Zone is expressed as fractions and scaled by 100 when applied.
type Weights struct {
	Suitability WeightTable `json:"suitability"`
	Zone        WeightTable `json:"zone"`
}

// DefaultWeights returns the stock tables: suitability 30/30/20/20 and the
// zone algorithm weights.
func DefaultWeights() Weights {
	return Weights{
		Suitability: WeightTable{
			DimensionZone:  30,
			DimensionSoil:  30,
			DimensionSun:   20,
			DimensionWater: 20,
		},
		Zone: WeightTable{
			DimensionWater:       0.25,
			DimensionSoil:        0.25,
			DimensionSun:         0.20,
			DimensionNative:      0.15,
			DimensionMaintenance: 0.10,
			DimensionAesthetic:   0.05,
		},
	}
}

// Validate checks that weights are non-negative and that suitability points
// total 100.
func (w Weights) Validate() error {
	var total float64
	for d, v := range w.Suitability {
		if v < 0 {
			return fmt.Errorf("suitability weight %s is negative", d)
		}
		total += v
	}
	if math.Abs(total-100) > 1e-9 {
		return fmt.Errorf("suitability weights total %.2f, want 100", total)
	}
	for d, v := range w.Zone {
		if v < 0 {
			return fmt.Errorf("zone weight %s is negative", d)
		}
	}
	return nil
}
