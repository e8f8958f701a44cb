package core

// NewDefaultRulesEngine builds a rules engine with the built-in catalog and
// site policies.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewPlantRangesRule())
	engine.Register(NewPlantUniqueNameRule())
	engine.Register(NewSiteAreasRule())
	return engine
}

// changedPlants returns the post-change plant of every plant create or update.
func changedPlants(changes []Change) []Plant {
	var out []Plant
	for _, c := range changes {
		if c.Entity != EntityPlant || c.Action == ActionDelete {
			continue
		}
		if p, ok := c.After.(Plant); ok {
			out = append(out, p)
		}
	}
	return out
}

func changedSites(changes []Change) []Site {
	var out []Site
	for _, c := range changes {
		if c.Entity != EntitySite || c.Action == ActionDelete {
			continue
		}
		if s, ok := c.After.(Site); ok {
			out = append(out, s)
		}
	}
	return out
}
