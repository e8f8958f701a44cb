// Package invasive flags catalog plants that should not be recommended
// without review.
package invasive

import (
	"context"
	"strings"

	"gardencore/internal/core"
)

// RuleName identifies the rule in violation reports.
const RuleName = "invasive_plant_warning"

// Plugin contributes the invasive-plant warning rule and the matching schema
// fragment for plant records.
type Plugin struct{}

// New constructs an invasive plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "invasive" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register wires the plant schema extension and the warning rule.
func (Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterSchema("plant", map[string]any{
		"$id":  "gardencore:invasive:plant",
		"type": "object",
		"properties": map[string]any{
			"special_features": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Tag a plant \"invasive\" to flag it for review",
			},
			"native_range": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
		},
	})

	registry.RegisterRule(invasiveRule{})
	return nil
}

type invasiveRule struct{}

func (invasiveRule) Name() string { return RuleName }

func (invasiveRule) Evaluate(_ context.Context, _ core.RuleView, changes []core.Change) (core.Result, error) {
	var result core.Result
	for _, change := range changes {
		if change.Entity != core.EntityPlant || change.Action == core.ActionDelete {
			continue
		}
		plant, ok := change.After.(core.Plant)
		if !ok {
			continue
		}
		var msg string
		switch {
		case taggedInvasive(plant):
			msg = plant.ScientificName + " is tagged invasive"
		case len(plant.NativeRange) == 0:
			msg = plant.ScientificName + " has no recorded native range"
		default:
			continue
		}
		result.Violations = append(result.Violations, core.Violation{
			Rule:     RuleName,
			Severity: core.SeverityWarn,
			Message:  msg,
			Entity:   core.EntityPlant,
			EntityID: plant.ID,
		})
	}
	return result, nil
}

func taggedInvasive(p core.Plant) bool {
	for _, tag := range p.SpecialFeatures {
		if strings.EqualFold(strings.TrimSpace(tag), "invasive") {
			return true
		}
	}
	return false
}
