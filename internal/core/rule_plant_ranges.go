package core

import (
	"context"
	"fmt"
)

const plantRangesRuleName = "plant_ranges"

type plantRangesRule struct{}

// NewPlantRangesRule blocks plants whose height, spread or pH ranges are
// negative or inverted, or whose pH leaves the 0-14 scale.
func NewPlantRangesRule() Rule { return plantRangesRule{} }

func (plantRangesRule) Name() string { return plantRangesRuleName }

func (r plantRangesRule) Evaluate(_ context.Context, _ RuleView, changes []Change) (Result, error) {
	var res Result
	for _, p := range changedPlants(changes) {
		block := func(msg string) {
			res.Violations = append(res.Violations, Violation{
				Rule:     r.Name(),
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("%s: %s", p.ScientificName, msg),
				Entity:   EntityPlant,
				EntityID: p.ID,
			})
		}
		if !p.HeightRange.Valid() {
			block(fmt.Sprintf("height range %.2f-%.2f is invalid", p.HeightRange.Min, p.HeightRange.Max))
		}
		if !p.SpreadRange.Valid() {
			block(fmt.Sprintf("spread range %.2f-%.2f is invalid", p.SpreadRange.Min, p.SpreadRange.Max))
		}
		if ph := p.SoilPH; ph != nil && (!ph.Valid() || ph.Max > 14) {
			block(fmt.Sprintf("soil pH range %.1f-%.1f is invalid", ph.Min, ph.Max))
		}
	}
	return res, nil
}
