package planner

import (
	"math"

	"gardencore/pkg/domain"
)

func newPlant(name, category string, opts ...func(*domain.Plant)) domain.Plant {
	p := domain.Plant{
		ScientificName: name,
		CommonName:     name,
		Category:       category,
		SpreadRange:    domain.Range{Min: 2, Max: 3},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func withSun(s ...domain.SunExposure) func(*domain.Plant) {
	return func(p *domain.Plant) { p.SunExposure = s }
}

func withWater(w domain.WaterCondition) func(*domain.Plant) {
	return func(p *domain.Plant) { p.WaterNeeds = w }
}

func withSoil(s ...domain.SoilType) func(*domain.Plant) {
	return func(p *domain.Plant) { p.SoilTypes = s }
}

func withPH(lo, hi float64) func(*domain.Plant) {
	return func(p *domain.Plant) { p.SoilPH = &domain.Range{Min: lo, Max: hi} }
}

func withHardiness(z string) func(*domain.Plant) {
	return func(p *domain.Plant) { p.HardinessZone = z }
}

func withNative(regions ...string) func(*domain.Plant) {
	return func(p *domain.Plant) { p.NativeRange = regions }
}

func withMaintenance(m domain.MaintenanceTier) func(*domain.Plant) {
	return func(p *domain.Plant) { p.Maintenance = m }
}

func withSpread(lo, hi float64) func(*domain.Plant) {
	return func(p *domain.Plant) { p.SpreadRange = domain.Range{Min: lo, Max: hi} }
}

func withID(id string) func(*domain.Plant) {
	return func(p *domain.Plant) { p.ID = id }
}

// ozarkSite is a 20x25 loam site in zone 7a with a single sun and water category.
func ozarkSite() domain.Site {
	return domain.Site{
		Name:            "Ozark Yard",
		Dimensions:      domain.Dimensions{Width: 20, Length: 25},
		SoilType:        domain.SoilLoam,
		SoilPH:          6.5,
		HardinessZone:   "7a",
		SunExposure:     map[domain.SunExposure]float64{domain.SunFull: 500},
		WaterConditions: map[domain.WaterCondition]float64{domain.WaterMedium: 500},
	}
}

func ranked(plants ...domain.Plant) []Scored {
	out := make([]Scored, len(plants))
	for i, p := range plants {
		out[i] = Scored{Plant: p, Score: float64(100 - i)}
	}
	return out
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
