package core

import (
	"context"
	"fmt"
	"strings"
)

const plantUniqueNameRuleName = "plant_unique_name"

type plantUniqueNameRule struct{}

// NewPlantUniqueNameRule blocks two catalog plants sharing a scientific name
// (case and surrounding whitespace ignored).
func NewPlantUniqueNameRule() Rule { return plantUniqueNameRule{} }

func (plantUniqueNameRule) Name() string { return plantUniqueNameRuleName }

func (r plantUniqueNameRule) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	touched := changedPlants(changes)
	if len(touched) == 0 {
		return Result{}, nil
	}
	owners := make(map[string][]string)
	for _, p := range view.ListPlants() {
		key := normalizeName(p.ScientificName)
		owners[key] = append(owners[key], p.ID)
	}
	var res Result
	reported := make(map[string]bool)
	for _, p := range touched {
		key := normalizeName(p.ScientificName)
		if len(owners[key]) < 2 || reported[key] {
			continue
		}
		reported[key] = true
		res.Violations = append(res.Violations, Violation{
			Rule:     r.Name(),
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("scientific name %q is used by %d plants", p.ScientificName, len(owners[key])),
			Entity:   EntityPlant,
			EntityID: p.ID,
		})
	}
	return res, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
