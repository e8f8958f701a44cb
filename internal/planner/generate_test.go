package planner

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"gardencore/pkg/domain"
)

func arkansasCatalog() []domain.Plant {
	return []domain.Plant{
		newPlant("Echinacea purpurea", "perennial", withNative("Arkansas", "Missouri"), withHardiness("3-9"),
			withSun(domain.SunFull, domain.SunPart), withWater(domain.WaterMedium), withMaintenance(domain.MaintenanceLow)),
		newPlant("Schizachyrium scoparium", "grass", withNative("AR"), withHardiness("3a-9b"),
			withSun(domain.SunFull), withWater(domain.WaterMediumDry), withMaintenance(domain.MaintenanceLow)),
		newPlant("Cercis canadensis", "tree", withNative("AR"), withHardiness("4-9"),
			withSpread(25, 35), withMaintenance(domain.MaintenanceMedium)),
		newPlant("Lonicera maackii", "shrub", withHardiness("3-8"), withSpread(6, 12),
			withMaintenance(domain.MaintenanceHigh)),
		newPlant("Asarum canadense", "groundcover", withSun(domain.SunFullShade), withWater(domain.WaterMediumWet),
			withSpread(0.5, 1)),
		newPlant("Hibiscus moscheutos", "perennial", withNative("AR"), withHardiness("5-9"),
			withSun(domain.SunFull), withWater(domain.WaterWet)),
	}
}

func mixedSite() domain.Site {
	return domain.Site{
		Name:          "Back forty",
		Dimensions:    domain.Dimensions{Width: 40, Length: 30},
		SoilType:      domain.SoilLoam,
		SoilPH:        6.5,
		HardinessZone: "7b",
		SunExposure: map[domain.SunExposure]float64{
			domain.SunFull:      800,
			domain.SunPartShade: 400,
		},
		WaterConditions: map[domain.WaterCondition]float64{
			domain.WaterMedium: 900,
			domain.WaterWet:    300,
		},
	}
}

func mustGenerate(t *testing.T, site domain.Site, catalog []domain.Plant, opts Options) domain.Design {
	t.Helper()
	design, err := Generate(site, catalog, opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return design
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestGenerateSingleNativePlant(t *testing.T) {
	p := newPlant("Callicarpa americana", "shrub", withNative("AR"), withMaintenance(domain.MaintenanceLow),
		withSpread(2, 3))
	design := mustGenerate(t, ozarkSite(), []domain.Plant{p}, Options{})

	if len(design.Zones) != 1 || len(design.Zones[0].Plants) != 1 {
		t.Fatalf("expected one zone with one plant, got %+v", design.Zones)
	}
	sel := design.Zones[0].Plants[0]
	if sel.Quantity != 20 || sel.ZoneID != "zone_1" || !near(sel.Score, 97) {
		t.Fatalf("unexpected selection %+v", sel)
	}

	stats := design.Statistics
	if stats.TotalPlants != 20 || !near(stats.NativePercentage, 100) ||
		!near(stats.BiodiversityScore, 10) || !near(stats.MaintenanceScore, 1) {
		t.Fatalf("unexpected statistics %+v", stats)
	}
	if len(design.Plants) != 1 || design.Plants[0].ScientificName != "Callicarpa americana" {
		t.Fatalf("unexpected distinct plants %+v", design.Plants)
	}
}

func TestGenerateEmptyCatalog(t *testing.T) {
	if _, err := Generate(ozarkSite(), nil, Options{}); !errors.Is(err, ErrNoDesign) {
		t.Fatalf("expected ErrNoDesign, got %v", err)
	}
}

func TestGenerateNoCandidatesStillProducesZones(t *testing.T) {
	p := newPlant("Picea glauca", "tree", withHardiness("2-3"), withWater(domain.WaterWet))
	design := mustGenerate(t, ozarkSite(), []domain.Plant{p}, Options{})
	if len(design.Zones) != 1 || len(design.Zones[0].Plants) != 0 {
		t.Fatalf("expected one empty zone, got %+v", design.Zones)
	}
	if len(design.Plants) != 0 || design.Statistics.TotalPlants != 0 {
		t.Fatalf("expected empty allocation, got %+v", design)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	site := mixedSite()
	catalog := arkansasCatalog()

	first := mustJSON(t, mustGenerate(t, site, catalog, Options{}))
	for range 5 {
		if again := mustJSON(t, mustGenerate(t, site, catalog, Options{})); again != first {
			t.Fatalf("designs differ:\n%s\n%s", first, again)
		}
	}
}

func TestGenerateDoesNotMutateInputs(t *testing.T) {
	site := mixedSite()
	catalog := arkansasCatalog()
	siteBefore, catalogBefore := mustJSON(t, site), mustJSON(t, catalog)

	design := mustGenerate(t, site, catalog, Options{})
	for zi := range design.Zones {
		for pi := range design.Zones[zi].Plants {
			design.Zones[zi].Plants[pi].Plant.NativeRange = append(design.Zones[zi].Plants[pi].Plant.NativeRange, "mutated")
		}
	}
	design.Site.SunExposure[domain.SunFull] = 1

	if mustJSON(t, site) != siteBefore {
		t.Fatalf("site mutated through the design")
	}
	if mustJSON(t, catalog) != catalogBefore {
		t.Fatalf("catalog mutated through the design")
	}
}

func TestGenerateDistinctPlantsFollowFirstAppearance(t *testing.T) {
	design := mustGenerate(t, mixedSite(), arkansasCatalog(), Options{})

	var order []string
	seen := map[string]bool{}
	for _, z := range design.Zones {
		for _, s := range z.Plants {
			if !seen[s.Plant.ScientificName] {
				seen[s.Plant.ScientificName] = true
				order = append(order, s.Plant.ScientificName)
			}
		}
	}
	if len(design.Plants) != len(order) {
		t.Fatalf("expected %d distinct plants, got %d", len(order), len(design.Plants))
	}
	for i, p := range design.Plants {
		if p.ScientificName != order[i] {
			t.Fatalf("position %d: expected %s, got %s", i, order[i], p.ScientificName)
		}
	}
}

func TestGenerateDistinctPlantsKeyedByRecord(t *testing.T) {
	zero := 0.0
	opts := Options{DesignOptions: domain.DesignOptions{DiversityFactor: &zero}}

	stored := []domain.Plant{
		newPlant("Carex blanda", "sedge", withID("plant-1")),
		newPlant("Carex blanda", "sedge", withID("plant-2"), withNative("AR")),
	}
	design := mustGenerate(t, ozarkSite(), stored, opts)
	if len(design.Zones[0].Plants) != 2 || len(design.Plants) != 2 {
		t.Fatalf("expected both stored records listed, got zone=%d distinct=%d",
			len(design.Zones[0].Plants), len(design.Plants))
	}

	unstored := []domain.Plant{
		newPlant("Carex blanda", "sedge"),
		newPlant("Carex blanda", "sedge", withNative("AR")),
	}
	design = mustGenerate(t, ozarkSite(), unstored, opts)
	if len(design.Zones[0].Plants) != 2 || len(design.Plants) != 1 {
		t.Fatalf("expected records without ids to merge by name, got zone=%d distinct=%d",
			len(design.Zones[0].Plants), len(design.Plants))
	}
}

func TestGenerateRespectsZoneTargets(t *testing.T) {
	zero := 0.0
	design := mustGenerate(t, mixedSite(), arkansasCatalog(), Options{
		DesignOptions: domain.DesignOptions{PlantsPerZone: 2, DiversityFactor: &zero},
	})
	if len(design.Zones) != 4 {
		t.Fatalf("expected 4 zones, got %d", len(design.Zones))
	}
	for _, z := range design.Zones {
		if len(z.Plants) > TargetCount(z.Zone.Area, 2) {
			t.Fatalf("%s holds %d plants, over its target", z.Zone.ID, len(z.Plants))
		}
	}
}

func TestGenerateHugeSite(t *testing.T) {
	site := ozarkSite()
	site.Dimensions = domain.Dimensions{Width: 1e13, Length: 1e12}
	site.SunExposure = map[domain.SunExposure]float64{domain.SunFull: 1e25}
	site.WaterConditions = map[domain.WaterCondition]float64{domain.WaterMedium: 1e25}
	zero := 0.0
	catalog := []domain.Plant{
		newPlant("Asarum canadense", "groundcover", withSpread(0.5, 1)),
		newPlant("Cercis canadensis", "tree", withSpread(25, 35)),
		newPlant("Lindera benzoin", "shrub"),
	}
	design := mustGenerate(t, site, catalog, Options{DesignOptions: domain.DesignOptions{PlantsPerZone: 3, DiversityFactor: &zero}})

	if got := len(design.Zones[0].Plants); got != 3 {
		t.Fatalf("expected 3 selections, got %d", got)
	}
	for _, sel := range design.Zones[0].Plants {
		if sel.Quantity != math.MaxInt {
			t.Fatalf("%s: expected saturated quantity, got %d", sel.Plant.ScientificName, sel.Quantity)
		}
	}
	if design.Statistics.TotalPlants != math.MaxInt {
		t.Fatalf("expected saturated total, got %d", design.Statistics.TotalPlants)
	}
}

func TestGenerateConcurrentCallsAgree(t *testing.T) {
	site := mixedSite()
	catalog := arkansasCatalog()
	want := mustJSON(t, mustGenerate(t, site, catalog, Options{}))

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := Generate(site, catalog, Options{})
			if err == nil {
				b, _ := json.Marshal(d)
				results[i] = string(b)
			}
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got != want {
			t.Fatalf("goroutine %d produced a different design", i)
		}
	}
}

func TestOptionsResolve(t *testing.T) {
	opts, err := Options{}.Resolve()
	if err != nil {
		t.Fatalf("resolve defaults: %v", err)
	}
	if opts.PlantsPerZone != DefaultPlantsPerZone || opts.DiversityFactor == nil ||
		!near(*opts.DiversityFactor, DefaultDiversityFactor) || opts.Weights == nil {
		t.Fatalf("defaults not applied: %+v", opts)
	}
	if len(opts.Region) != len(DefaultRegion) || opts.Region[0] != DefaultRegion[0] {
		t.Fatalf("expected default region, got %v", opts.Region)
	}

	zero := 0.0
	opts, err = Options{DesignOptions: domain.DesignOptions{DiversityFactor: &zero}}.Resolve()
	if err != nil {
		t.Fatalf("resolve zero factor: %v", err)
	}
	if *opts.DiversityFactor != 0 {
		t.Fatalf("zero is a legal factor, got %v", *opts.DiversityFactor)
	}
}

func TestOptionsResolveRejectsOutOfRange(t *testing.T) {
	high := 1.5
	low := -0.1
	bad := []Options{
		{DesignOptions: domain.DesignOptions{PlantsPerZone: -1}},
		{DesignOptions: domain.DesignOptions{DiversityFactor: &high}},
		{DesignOptions: domain.DesignOptions{DiversityFactor: &low}},
		{Weights: &Weights{Suitability: WeightTable{DimensionZone: 10}}},
	}
	for i, o := range bad {
		if _, err := o.Resolve(); !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("case %d: resolve expected ErrInvalidOptions, got %v", i, err)
		}
		if _, err := Generate(ozarkSite(), arkansasCatalog(), o); !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("case %d: generate expected ErrInvalidOptions, got %v", i, err)
		}
	}
}
