package planner

import (
	"sort"

	"gardencore/pkg/domain"
)

const (
	globalShare = 0.4
	zoneShare   = 0.6
)

// Scored is a candidate ranked for a particular zone.
type Scored struct {
	Plant domain.Plant
	Score float64
}

// ScoreZone ranks candidates for one zone. The zone bonus draws on the zone
// weight table scaled to 0-100 and is blended with the global suitability
// score. Ties keep candidate order.
func ScoreZone(zone domain.Zone, candidates []Candidate, region []string, weights Weights) []Scored {
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		bonus := weights.Zone.Sum(zoneHits(c.Plant, zone, region), 100)
		out = append(out, Scored{
			Plant: c.Plant,
			Score: globalShare*c.Verdict.Score + zoneShare*bonus,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func zoneHits(p domain.Plant, zone domain.Zone, region []string) map[Dimension]float64 {
	hits := map[Dimension]float64{
		DimensionSun:    hit(SunCompatible(p, zone.SunExposure)),
		DimensionWater:  hit(WaterCompatible(p, zone.WaterCondition)),
		DimensionSoil:   hit(SoilCompatible(p, zone.SoilType, zone.SoilPH)),
		DimensionNative: hit(p.NativeTo(region)),
	}
	switch p.Maintenance {
	case domain.MaintenanceLow:
		hits[DimensionMaintenance] = 1
	case domain.MaintenanceMedium:
		hits[DimensionMaintenance] = 0.5
	}
	return hits
}
