package core

import (
	"context"
	"fmt"
)

const siteAreasRuleName = "site_areas"

// areaTolerance absorbs rounding in hand-entered breakdowns.
const areaTolerance = 1e-6

type siteAreasRule struct{}

// NewSiteAreasRule blocks negative dimensions or category areas and warns
// when a sun or water breakdown claims more area than the site has.
func NewSiteAreasRule() Rule { return siteAreasRule{} }

func (siteAreasRule) Name() string { return siteAreasRuleName }

func (r siteAreasRule) Evaluate(_ context.Context, _ RuleView, changes []Change) (Result, error) {
	var res Result
	for _, s := range changedSites(changes) {
		add := func(sev Severity, msg string) {
			res.Violations = append(res.Violations, Violation{
				Rule:     r.Name(),
				Severity: sev,
				Message:  fmt.Sprintf("site %s: %s", s.Name, msg),
				Entity:   EntitySite,
				EntityID: s.ID,
			})
		}
		if s.Dimensions.Width < 0 || s.Dimensions.Length < 0 {
			add(SeverityBlock, "dimensions must be non-negative")
			continue
		}
		total := s.TotalArea()
		var sunSum, waterSum float64
		for _, k := range s.SunCategories() {
			v := s.SunExposure[k]
			if v < 0 {
				add(SeverityBlock, fmt.Sprintf("sun area %s is negative", k))
			}
			sunSum += v
		}
		for _, k := range s.WaterCategories() {
			v := s.WaterConditions[k]
			if v < 0 {
				add(SeverityBlock, fmt.Sprintf("water area %s is negative", k))
			}
			waterSum += v
		}
		if sunSum > total+areaTolerance {
			add(SeverityWarn, fmt.Sprintf("sun breakdown covers %.1f of %.1f", sunSum, total))
		}
		if waterSum > total+areaTolerance {
			add(SeverityWarn, fmt.Sprintf("water breakdown covers %.1f of %.1f", waterSum, total))
		}
	}
	return res, nil
}
