package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"gardencore/internal/core"
	"gardencore/internal/events"
	"gardencore/internal/planner"
	"gardencore/pkg/domain"
)

func catalog() []domain.Plant {
	return []domain.Plant{
		{
			ScientificName: "Echinacea purpurea",
			CommonName:     "Purple Coneflower",
			Category:       "perennial",
			NativeRange:    []string{"Arkansas"},
			HardinessZone:  "3-8",
			HeightRange:    domain.Range{Min: 2, Max: 4},
			SpreadRange:    domain.Range{Min: 1, Max: 2},
			SunExposure:    []domain.SunExposure{domain.SunFull, domain.SunPart},
			WaterNeeds:     domain.WaterMedium,
			SoilTypes:      []domain.SoilType{domain.SoilLoam, domain.SoilClay},
			Maintenance:    domain.MaintenanceLow,
		},
		{
			ScientificName: "Cercis canadensis",
			CommonName:     "Eastern Redbud",
			Category:       "tree",
			NativeRange:    []string{"Arkansas"},
			HardinessZone:  "4-9",
			HeightRange:    domain.Range{Min: 20, Max: 30},
			SpreadRange:    domain.Range{Min: 25, Max: 35},
			SunExposure:    []domain.SunExposure{domain.SunFull, domain.SunPartShade},
			WaterNeeds:     domain.WaterMedium,
			SoilTypes:      []domain.SoilType{domain.SoilLoam},
			Maintenance:    domain.MaintenanceLow,
		},
	}
}

func backyard() domain.Site {
	return domain.Site{
		Name:            "Backyard",
		Dimensions:      domain.Dimensions{Width: 20, Length: 25},
		SoilType:        domain.SoilLoam,
		SoilPH:          6.5,
		HardinessZone:   "7a",
		SunExposure:     map[domain.SunExposure]float64{domain.SunFull: 500},
		WaterConditions: map[domain.WaterCondition]float64{domain.WaterMedium: 500},
	}
}

type captureAudit struct {
	entries []core.AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry core.AuditEntry) {
	c.entries = append(c.entries, entry)
}

type captureLogger struct {
	warns  []string
	errors []string
	infos  []string
}

func (l *captureLogger) Debug(string, ...any)       {}
func (l *captureLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func fixedClock() core.ClockFunc {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestPlantLifecycle(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	ctx := context.Background()

	created, res, err := svc.CreatePlant(ctx, catalog()[0])
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected violations: %+v", res.Violations)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}

	updated, _, err := svc.UpdatePlant(ctx, created.ID, func(p *domain.Plant) error {
		p.CommonName = "Coneflower"
		return nil
	})
	if err != nil {
		t.Fatalf("update plant: %v", err)
	}
	if updated.CommonName != "Coneflower" {
		t.Fatalf("expected updated common name, got %q", updated.CommonName)
	}

	_, _, err = svc.UpdatePlant(ctx, "missing", func(*domain.Plant) error { return nil })
	var nf core.ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != core.EntityPlant {
		t.Fatalf("expected plant not found, got %v", err)
	}

	if _, err := svc.DeletePlant(ctx, created.ID); err != nil {
		t.Fatalf("delete plant: %v", err)
	}
	if plants := svc.ListPlants(ctx); len(plants) != 0 {
		t.Fatalf("expected empty catalog, got %d plants", len(plants))
	}
	if _, err := svc.DeletePlant(ctx, created.ID); !errors.As(err, &nf) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestImportCatalogKeepsOrder(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	ctx := context.Background()

	created, _, err := svc.ImportCatalog(ctx, catalog())
	if err != nil {
		t.Fatalf("import catalog: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 created plants, got %d", len(created))
	}

	listed := svc.ListPlants(ctx)
	if len(listed) != 2 {
		t.Fatalf("expected 2 listed plants, got %d", len(listed))
	}
	if listed[0].ScientificName != "Echinacea purpurea" || listed[1].ScientificName != "Cercis canadensis" {
		t.Fatalf("import order not kept: %q, %q", listed[0].ScientificName, listed[1].ScientificName)
	}
}

func TestImportCatalogRejectsDuplicateNames(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	ctx := context.Background()

	dup := catalog()[0]
	dup.ScientificName = "  echinacea   PURPUREA "
	_, res, err := svc.ImportCatalog(ctx, append(catalog(), dup))

	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Rule != "plant_unique_name" {
		t.Fatalf("expected one plant_unique_name violation, got %+v", res.Violations)
	}
	if plants := svc.ListPlants(ctx); len(plants) != 0 {
		t.Fatalf("a rejected batch leaves the catalog untouched, got %d plants", len(plants))
	}
}

func TestSiteLifecycle(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	ctx := context.Background()

	site, _, err := svc.CreateSite(ctx, backyard())
	if err != nil {
		t.Fatalf("create site: %v", err)
	}

	got, err := svc.GetSite(ctx, site.ID)
	if err != nil {
		t.Fatalf("get site: %v", err)
	}
	if got.Name != "Backyard" {
		t.Fatalf("unexpected site name %q", got.Name)
	}

	if _, _, err := svc.UpdateSite(ctx, site.ID, func(s *domain.Site) error {
		s.SoilPH = 7
		return nil
	}); err != nil {
		t.Fatalf("update site: %v", err)
	}
	got, err = svc.GetSite(ctx, site.ID)
	if err != nil {
		t.Fatalf("get updated site: %v", err)
	}
	if math.Abs(got.SoilPH-7) > 1e-9 {
		t.Fatalf("expected soil pH 7, got %v", got.SoilPH)
	}

	if sites := svc.ListSites(ctx); len(sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(sites))
	}

	if _, err := svc.DeleteSite(ctx, site.ID); err != nil {
		t.Fatalf("delete site: %v", err)
	}
	_, err = svc.GetSite(ctx, site.ID)
	var nf core.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if want := "site " + site.ID + " not found"; nf.Error() != want {
		t.Fatalf("expected %q, got %q", want, nf.Error())
	}
}

func TestCreateSiteWarnsOnOversizedBreakdown(t *testing.T) {
	logger := &captureLogger{}
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(), core.WithLogger(logger))

	site := backyard()
	site.SunExposure[domain.SunPart] = 200
	_, res, err := svc.CreateSite(context.Background(), site)
	if err != nil {
		t.Fatalf("warnings must not block: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Severity != core.SeverityWarn {
		t.Fatalf("expected one warning, got %+v", res.Violations)
	}
	if !reflect.DeepEqual(logger.warns, []string{"rule violation"}) {
		t.Fatalf("expected warning log, got %v", logger.warns)
	}
}

func TestGenerateDesignPersistsAndPublishes(t *testing.T) {
	publisher := &events.MemoryPublisher{}
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(), core.WithEventPublisher(publisher))
	ctx := context.Background()

	if _, _, err := svc.ImportCatalog(ctx, catalog()); err != nil {
		t.Fatalf("import catalog: %v", err)
	}
	site, _, err := svc.CreateSite(ctx, backyard())
	if err != nil {
		t.Fatalf("create site: %v", err)
	}

	rec, _, err := svc.GenerateDesign(ctx, site.ID, domain.DesignOptions{})
	if err != nil {
		t.Fatalf("generate design: %v", err)
	}
	if rec.ID == "" || rec.SiteID != site.ID {
		t.Fatalf("unexpected record identity: id=%q site=%q", rec.ID, rec.SiteID)
	}
	if rec.Options.PlantsPerZone != planner.DefaultPlantsPerZone {
		t.Fatalf("expected default plants per zone, got %d", rec.Options.PlantsPerZone)
	}
	if rec.Options.DiversityFactor == nil || math.Abs(*rec.Options.DiversityFactor-planner.DefaultDiversityFactor) > 1e-9 {
		t.Fatalf("expected resolved diversity factor, got %v", rec.Options.DiversityFactor)
	}
	if len(rec.Design.Zones) != 1 || len(rec.Design.Zones[0].Plants) == 0 {
		t.Fatalf("expected one planted zone, got %+v", rec.Design.Zones)
	}

	stored, err := svc.GetDesign(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get design: %v", err)
	}
	if !reflect.DeepEqual(stored.Design.Statistics, rec.Design.Statistics) {
		t.Fatalf("stored statistics differ: %+v vs %+v", stored.Design.Statistics, rec.Design.Statistics)
	}
	if designs := svc.ListDesigns(ctx); len(designs) != 1 {
		t.Fatalf("expected 1 design, got %d", len(designs))
	}

	published := publisher.Events()
	if len(published) != 1 {
		t.Fatalf("expected one event, got %d", len(published))
	}
	if published[0].Type != events.TypeDesignGenerated || published[0].Key != site.ID {
		t.Fatalf("unexpected event: %+v", published[0])
	}
	var payload events.DesignGenerated
	if err := json.Unmarshal(published[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.DesignID != rec.ID || payload.TotalPlants != rec.Design.Statistics.TotalPlants {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestGenerateDesignErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown site", func(t *testing.T) {
		svc := core.NewInMemoryService(nil)
		_, _, err := svc.GenerateDesign(ctx, "nope", domain.DesignOptions{})
		var nf core.ErrNotFound
		if !errors.As(err, &nf) || nf.Entity != core.EntitySite {
			t.Fatalf("expected site not found, got %v", err)
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		svc := core.NewInMemoryService(nil)
		site, _, err := svc.CreateSite(ctx, backyard())
		if err != nil {
			t.Fatalf("create site: %v", err)
		}
		_, _, err = svc.GenerateDesign(ctx, site.ID, domain.DesignOptions{})
		if !errors.Is(err, planner.ErrNoDesign) {
			t.Fatalf("expected ErrNoDesign, got %v", err)
		}
		if designs := svc.ListDesigns(ctx); len(designs) != 0 {
			t.Fatalf("failed generation must not persist, got %d designs", len(designs))
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		svc := core.NewInMemoryService(nil)
		site, _, err := svc.CreateSite(ctx, backyard())
		if err != nil {
			t.Fatalf("create site: %v", err)
		}
		bad := 1.5
		_, _, err = svc.GenerateDesign(ctx, site.ID, domain.DesignOptions{DiversityFactor: &bad})
		if !errors.Is(err, planner.ErrInvalidOptions) {
			t.Fatalf("expected ErrInvalidOptions, got %v", err)
		}
	})
}

func TestDesignDefaultsApplyWhenRequestIsUnset(t *testing.T) {
	zero := 0.0
	svc := core.NewInMemoryService(nil, core.WithDesignDefaults(planner.Options{
		DesignOptions: domain.DesignOptions{PlantsPerZone: 3, DiversityFactor: &zero},
	}))

	opts, err := svc.ResolveDesignOptions(domain.DesignOptions{})
	if err != nil {
		t.Fatalf("resolve defaults: %v", err)
	}
	if opts.PlantsPerZone != 3 || *opts.DiversityFactor != 0 {
		t.Fatalf("expected configured defaults, got %d / %v", opts.PlantsPerZone, *opts.DiversityFactor)
	}

	half := 0.5
	opts, err = svc.ResolveDesignOptions(domain.DesignOptions{PlantsPerZone: 8, DiversityFactor: &half})
	if err != nil {
		t.Fatalf("resolve explicit: %v", err)
	}
	if opts.PlantsPerZone != 8 || math.Abs(*opts.DiversityFactor-0.5) > 1e-9 {
		t.Fatalf("explicit options must win, got %d / %v", opts.PlantsPerZone, *opts.DiversityFactor)
	}
	if !slices.Equal(opts.Region, planner.DefaultRegion) {
		t.Fatalf("expected default region, got %q", opts.Region)
	}
}

func TestDeleteSiteBlockedByDesign(t *testing.T) {
	svc := core.NewInMemoryService(nil)
	ctx := context.Background()
	if _, _, err := svc.ImportCatalog(ctx, catalog()); err != nil {
		t.Fatalf("import catalog: %v", err)
	}
	site, _, err := svc.CreateSite(ctx, backyard())
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	rec, _, err := svc.GenerateDesign(ctx, site.ID, domain.DesignOptions{})
	if err != nil {
		t.Fatalf("generate design: %v", err)
	}

	if _, err := svc.DeleteSite(ctx, site.ID); err == nil {
		t.Fatalf("expected site delete to be blocked by design")
	}

	if _, err := svc.DeleteDesign(ctx, rec.ID); err != nil {
		t.Fatalf("delete design: %v", err)
	}
	var nf core.ErrNotFound
	if _, err := svc.DeleteDesign(ctx, rec.ID); !errors.As(err, &nf) {
		t.Fatalf("expected not found on second design delete, got %v", err)
	}

	if _, err := svc.DeleteSite(ctx, site.ID); err != nil {
		t.Fatalf("delete site after design removal: %v", err)
	}
}

func TestServiceObservability(t *testing.T) {
	audit := &captureAudit{}
	logger := &captureLogger{}
	tracer := core.NewJSONTracer(nil)
	metrics := core.NewExpvarMetricsRecorder("")
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(),
		core.WithAuditRecorder(audit),
		core.WithLogger(logger),
		core.WithTracer(tracer),
		core.WithMetricsRecorder(metrics),
		core.WithClock(fixedClock()),
	)
	ctx := context.Background()

	plant, _, err := svc.CreatePlant(ctx, catalog()[0])
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	if _, err := svc.DeletePlant(ctx, "missing"); err == nil {
		t.Fatalf("expected delete of missing plant to fail")
	}
	svc.ListPlants(ctx)

	if len(audit.entries) != 2 {
		t.Fatalf("reads are not audited: got %d entries", len(audit.entries))
	}
	want := core.AuditEntry{
		Operation: "create_plant",
		Entity:    core.EntityPlant,
		Action:    core.ActionCreate,
		EntityID:  plant.ID,
		Status:    core.AuditStatusSuccess,
		Timestamp: fixedClock()(),
	}
	if !reflect.DeepEqual(audit.entries[0], want) {
		t.Fatalf("unexpected audit entry:\n got %+v\nwant %+v", audit.entries[0], want)
	}
	if audit.entries[1].Status != core.AuditStatusError || audit.entries[1].Error != "plant missing not found" {
		t.Fatalf("unexpected failure audit: %+v", audit.entries[1])
	}

	if !reflect.DeepEqual(logger.errors, []string{"operation failed"}) {
		t.Fatalf("expected one error log, got %v", logger.errors)
	}

	spans := tracer.Entries()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[2].Operation != "list_plants" || spans[1].Status != core.AuditStatusError {
		t.Fatalf("unexpected spans: %+v", spans)
	}

	stats := metrics.Snapshot()
	if stats["create_plant"].Calls != 1 || stats["delete_plant"].Errors != 1 {
		t.Fatalf("unexpected metrics: %+v", stats)
	}
}

type rangePlugin struct {
	name string
	err  error
}

func (p rangePlugin) Name() string    { return p.name }
func (p rangePlugin) Version() string { return "1.0.0" }
func (p rangePlugin) Register(reg *core.PluginRegistry) error {
	if p.err != nil {
		return p.err
	}
	reg.RegisterRule(tallPlantRule{})
	reg.RegisterSchema("plant", map[string]any{"type": "object"})
	return nil
}

type tallPlantRule struct{}

func (tallPlantRule) Name() string { return "tall_plant" }

func (r tallPlantRule) Evaluate(_ context.Context, _ core.RuleView, changes []core.Change) (core.Result, error) {
	var res core.Result
	for _, c := range changes {
		if p, ok := c.After.(core.Plant); ok && p.HeightRange.Max > 25 {
			res.Violations = append(res.Violations, core.Violation{Rule: r.Name(), Severity: core.SeverityWarn, Entity: core.EntityPlant})
		}
	}
	return res, nil
}

func TestInstallPlugin(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	ctx := context.Background()

	meta, err := svc.InstallPlugin(rangePlugin{name: "zeta"})
	if err != nil {
		t.Fatalf("install plugin: %v", err)
	}
	if !reflect.DeepEqual(meta.Rules, []string{"tall_plant"}) {
		t.Fatalf("unexpected rules %v", meta.Rules)
	}
	if _, ok := meta.Schemas["plant"]; !ok {
		t.Fatalf("expected plant schema, got %v", meta.Schemas)
	}

	if _, err := svc.InstallPlugin(rangePlugin{name: "zeta"}); err == nil {
		t.Fatalf("expected duplicate plugin error")
	}
	if _, err := svc.InstallPlugin(nil); err == nil {
		t.Fatalf("expected nil plugin error")
	}
	_, err = svc.InstallPlugin(rangePlugin{name: "broken", err: errors.New("boom")})
	if err == nil || !strings.Contains(err.Error(), "register plugin broken") {
		t.Fatalf("expected register error, got %v", err)
	}

	if _, err := svc.InstallPlugin(rangePlugin{name: "alpha"}); err != nil {
		t.Fatalf("install alpha: %v", err)
	}
	plugins := svc.RegisteredPlugins()
	if len(plugins) != 2 || plugins[0].Name != "alpha" || plugins[1].Name != "zeta" {
		t.Fatalf("expected alpha then zeta, got %+v", plugins)
	}

	_, res, err := svc.CreatePlant(ctx, catalog()[1])
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("both installed copies of the rule evaluate, got %+v", res.Violations)
	}
}
