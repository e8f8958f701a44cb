package planner

import (
	"math"

	"gardencore/pkg/domain"
)

var waterScores = map[domain.WaterCondition]int{
	domain.WaterLow:       1,
	domain.WaterDry:       1,
	domain.WaterMediumDry: 1,
	domain.WaterMedium:    2,
	domain.WaterMediumWet: 3,
	domain.WaterWet:       3,
	domain.WaterHigh:      3,
}

var maintenanceScores = map[domain.MaintenanceTier]int{
	domain.MaintenanceLow:    1,
	domain.MaintenanceMedium: 2,
	domain.MaintenanceHigh:   3,
}

// unspecifiedScore weights plants that declare no tier so the means stay in [1,3].
const unspecifiedScore = 2

// Aggregate reduces a complete allocation to summary statistics in a single pass.
func Aggregate(zones []domain.ZoneDesign, region []string) domain.Statistics {
	stats := domain.Statistics{PlantTypes: make(map[string]int)}
	var total, native, water, maintenance float64
	for _, zone := range zones {
		for _, sel := range zone.Plants {
			stats.TotalPlants = saturatingAdd(stats.TotalPlants, sel.Quantity)
			stats.PlantTypes[sel.Plant.Category] = saturatingAdd(stats.PlantTypes[sel.Plant.Category], sel.Quantity)
			q := float64(sel.Quantity)
			total += q
			if sel.Plant.NativeTo(region) {
				native += q
			}
			water += q * float64(tierScore(waterScores, sel.Plant.WaterNeeds))
			maintenance += q * float64(tierScore(maintenanceScores, sel.Plant.Maintenance))
		}
	}
	if total > 0 {
		stats.NativePercentage = native / total * 100
		stats.WaterUsageScore = water / total
		stats.MaintenanceScore = maintenance / total
	}
	stats.BiodiversityScore = float64(min(100, len(stats.PlantTypes)*10))
	return stats
}

func tierScore[K comparable](table map[K]int, tier K) int {
	if v, ok := table[tier]; ok {
		return v
	}
	return unspecifiedScore
}

// saturatingAdd adds non-negative counts, stopping at math.MaxInt.
func saturatingAdd(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
