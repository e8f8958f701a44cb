package planner

import "gardencore/pkg/domain"

// PrefilterThreshold is the global suitability score a plant must exceed to be
// considered for any zone.
const PrefilterThreshold = 50.0

// Evaluate scores one plant against a site. Sun and water pass when any
// declared site category is tolerated, or when the site declares none.
func Evaluate(p domain.Plant, site domain.Site, weights Weights) domain.Verdict {
	v := domain.Verdict{
		Zone:  ZoneCompatible(p, site.HardinessZone),
		Soil:  SoilCompatible(p, site.SoilType, site.SoilPH),
		Sun:   len(site.SunExposure) == 0,
		Water: len(site.WaterConditions) == 0,
	}
	for _, sun := range site.SunCategories() {
		if SunCompatible(p, sun) {
			v.Sun = true
			break
		}
	}
	for _, water := range site.WaterCategories() {
		if WaterCompatible(p, water) {
			v.Water = true
			break
		}
	}
	v.Score = weights.Suitability.Sum(map[Dimension]float64{
		DimensionZone:  hit(v.Zone),
		DimensionSoil:  hit(v.Soil),
		DimensionSun:   hit(v.Sun),
		DimensionWater: hit(v.Water),
	}, 1)
	return v
}

// Candidate is a plant that passed the global pre-filter together with its verdict.
type Candidate struct {
	Plant   domain.Plant
	Verdict domain.Verdict
}

// Prefilter keeps catalog plants whose suitability score exceeds PrefilterThreshold,
// preserving catalog order.
func Prefilter(site domain.Site, catalog []domain.Plant, weights Weights) []Candidate {
	out := make([]Candidate, 0, len(catalog))
	for _, p := range catalog {
		v := Evaluate(p, site, weights)
		if v.Score > PrefilterThreshold {
			out = append(out, Candidate{Plant: p, Verdict: v})
		}
	}
	return out
}

func hit(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
