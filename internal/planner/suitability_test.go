package planner

import (
	"math"
	"testing"

	"gardencore/pkg/domain"
)

func TestEvaluateScoresAreMultiplesOfTen(t *testing.T) {
	site := ozarkSite()
	cases := []struct {
		plant domain.Plant
		want  float64
	}{
		{newPlant("Tolerant", "perennial"), 100},
		{newPlant("Shade only", "perennial", withSun(domain.SunFullShade)), 80},
		{newPlant("Clay only", "perennial", withSoil(domain.SoilClay)), 70},
		{newPlant("Cold only", "tree", withHardiness("3-4"), withWater(domain.WaterWet)), 50},
		{newPlant("Nothing fits", "tree", withHardiness("3-4"), withWater(domain.WaterWet),
			withSun(domain.SunFullShade), withSoil(domain.SoilSandy)), 0},
	}
	for _, tc := range cases {
		v := Evaluate(tc.plant, site, DefaultWeights())
		if !near(v.Score, tc.want) {
			t.Fatalf("%s: score %v, want %v", tc.plant.ScientificName, v.Score, tc.want)
		}
		if !near(math.Mod(v.Score, 10), 0) {
			t.Fatalf("%s: score %v is not a multiple of ten", tc.plant.ScientificName, v.Score)
		}
	}
}

func TestEvaluateChecksEveryDeclaredCategory(t *testing.T) {
	site := ozarkSite()
	site.SunExposure = map[domain.SunExposure]float64{domain.SunFull: 500, domain.SunFullShade: 0}
	p := newPlant("Mitchella repens", "groundcover", withSun(domain.SunFullShade))

	if v := Evaluate(p, site, DefaultWeights()); !v.Sun {
		t.Fatalf("zero-area categories still count as declared")
	}
}

func TestEvaluateWithoutBreakdownsPasses(t *testing.T) {
	site := ozarkSite()
	site.SunExposure = nil
	site.WaterConditions = nil
	p := newPlant("Carex cherokeensis", "sedge", withSun(domain.SunFullShade), withWater(domain.WaterWet))

	if v := Evaluate(p, site, DefaultWeights()); !v.Sun || !v.Water {
		t.Fatalf("expected sun and water to pass without breakdowns, got %+v", v)
	}
}

func TestPrefilterExcludesAtThreshold(t *testing.T) {
	site := ozarkSite()
	catalog := []domain.Plant{
		newPlant("Borderline", "tree", withHardiness("3-4"), withWater(domain.WaterWet)),
		newPlant("Keeps", "shrub", withSun(domain.SunFullShade)),
		newPlant("Also keeps", "grass"),
	}
	got := Prefilter(site, catalog, DefaultWeights())
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Plant.ScientificName != "Keeps" || got[1].Plant.ScientificName != "Also keeps" {
		t.Fatalf("unexpected candidates %s, %s", got[0].Plant.ScientificName, got[1].Plant.ScientificName)
	}
	if !near(got[0].Verdict.Score, 80) {
		t.Fatalf("expected verdict carried, got %v", got[0].Verdict.Score)
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights: %v", err)
	}

	skewed := DefaultWeights()
	skewed.Suitability[DimensionZone] = 40
	if err := skewed.Validate(); err == nil {
		t.Fatalf("expected suitability weights not summing to 100 to fail")
	}

	negative := DefaultWeights()
	negative.Zone[DimensionNative] = -0.1
	if err := negative.Validate(); err == nil {
		t.Fatalf("expected negative weight to fail")
	}
}
