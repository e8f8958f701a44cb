package planner

import (
	"math"

	"gardencore/pkg/domain"
)

// TargetCount is the number of slots a zone gets: one per started 100 units of
// area, capped by maxPerZone and never below one. The cap is applied before
// converting so areas beyond the int range still saturate at maxPerZone.
func TargetCount(area float64, maxPerZone int) int {
	byArea := math.Floor(area/100) + 1
	switch {
	case math.IsNaN(byArea) || byArea < 1:
		return 1
	case byArea >= float64(maxPerZone):
		return max(1, maxPerZone)
	}
	return int(byArea)
}

// Select walks ranked plants greedily, accepting each one unless its category
// already holds target×(1−diversity) accepted plants. It stops at the target
// or when candidates run out, in which case the zone stays under-filled.
func Select(zone domain.Zone, ranked []Scored, maxPerZone int, diversity float64) []domain.Selection {
	target := TargetCount(zone.Area, maxPerZone)
	limit := float64(target) * (1 - diversity)
	perCategory := make(map[string]int)
	selected := make([]domain.Selection, 0, target)
	for _, r := range ranked {
		if len(selected) >= target {
			break
		}
		if float64(perCategory[r.Plant.Category]) >= limit {
			continue
		}
		selected = append(selected, domain.Selection{
			Plant:    clonePlant(r.Plant),
			Score:    r.Score,
			Quantity: Quantity(r.Plant, zone.Area),
			ZoneID:   zone.ID,
		})
		perCategory[r.Plant.Category]++
	}
	return selected
}

func clonePlant(p domain.Plant) domain.Plant {
	cp := p
	cp.NativeRange = append([]string(nil), p.NativeRange...)
	cp.BloomTime = append([]string(nil), p.BloomTime...)
	cp.BloomColor = append([]string(nil), p.BloomColor...)
	cp.SunExposure = append([]domain.SunExposure(nil), p.SunExposure...)
	cp.SoilTypes = append([]domain.SoilType(nil), p.SoilTypes...)
	cp.EcologicalBenefits = append([]string(nil), p.EcologicalBenefits...)
	cp.SpecialFeatures = append([]string(nil), p.SpecialFeatures...)
	if p.SoilPH != nil {
		ph := *p.SoilPH
		cp.SoilPH = &ph
	}
	return cp
}
