package invasive_test

import (
	"context"
	"reflect"
	"testing"

	"gardencore/internal/core"
	"gardencore/plugins/invasive"
)

func TestPluginMetadata(t *testing.T) {
	p := invasive.New()
	if p.Name() != "invasive" || p.Version() != "0.1.0" {
		t.Fatalf("unexpected metadata %s@%s", p.Name(), p.Version())
	}

	reg := core.NewPluginRegistry()
	if err := p.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	rules := reg.Rules()
	if len(rules) != 1 || rules[0].Name() != invasive.RuleName {
		t.Fatalf("expected single %s rule, got %d rules", invasive.RuleName, len(rules))
	}
	if _, ok := reg.Schemas()["plant"]; !ok {
		t.Fatalf("expected plant schema fragment")
	}
}

func TestInvasiveWarningsThroughService(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	meta, err := svc.InstallPlugin(invasive.New())
	if err != nil {
		t.Fatalf("install plugin: %v", err)
	}
	if !reflect.DeepEqual(meta.Rules, []string{invasive.RuleName}) {
		t.Fatalf("unexpected rules %v", meta.Rules)
	}

	ctx := context.Background()
	plants := []core.Plant{
		{ScientificName: "Echinacea purpurea", Category: "perennial", NativeRange: []string{"Arkansas"}},
		{ScientificName: "Lonicera japonica", Category: "vine", NativeRange: []string{"Japan"}, SpecialFeatures: []string{" Invasive "}},
		{ScientificName: "Hosta plantaginea", Category: "perennial"},
	}
	created, res, err := svc.ImportCatalog(ctx, plants)
	if err != nil {
		t.Fatalf("warnings never block the import: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 plants, got %d", len(created))
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", res.Violations)
	}

	if got := res.Violations[0]; got.Message != "Lonicera japonica is tagged invasive" || got.EntityID != created[1].ID {
		t.Fatalf("unexpected invasive warning: %+v", got)
	}
	if got := res.Violations[1].Message; got != "Hosta plantaginea has no recorded native range" {
		t.Fatalf("unexpected native range warning %q", got)
	}
	for _, v := range res.Violations {
		if v.Severity != core.SeverityWarn {
			t.Fatalf("expected warn severity, got %+v", v)
		}
	}

	if _, err := svc.DeletePlant(ctx, created[1].ID); err != nil {
		t.Fatalf("delete plant: %v", err)
	}
}

func TestInvasiveRuleIgnoresSites(t *testing.T) {
	svc := core.NewInMemoryService(nil)
	if _, err := svc.InstallPlugin(invasive.New()); err != nil {
		t.Fatalf("install plugin: %v", err)
	}

	_, res, err := svc.CreateSite(context.Background(), core.Site{Name: "Lot"})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("sites are not checked: %+v", res.Violations)
	}
}
