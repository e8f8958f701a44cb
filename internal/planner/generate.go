package planner

import (
	"errors"
	"fmt"

	"gardencore/pkg/domain"
)

// Defaults applied when options leave a value unspecified.
const (
	DefaultPlantsPerZone   = 5
	DefaultDiversityFactor = 0.7
)

// DefaultRegion is the native region matched when options name none.
var DefaultRegion = []string{"Arkansas", "AR"}

var (
	// ErrNoDesign reports that generation produced nothing because the catalog is empty.
	ErrNoDesign = errors.New("planner: no design produced: catalog is empty")
	// ErrInvalidOptions reports out-of-range generation options.
	ErrInvalidOptions = errors.New("planner: invalid options")
)

// Options configures a generation call.
type Options struct {
	domain.DesignOptions
	// Region lists identifiers a plant's native range must intersect to count as native.
	Region []string
	// Weights overrides DefaultWeights when non-nil.
	Weights *Weights
}

// Resolve fills unspecified values with defaults and validates the result.
func (o Options) Resolve() (Options, error) {
	if o.PlantsPerZone == 0 {
		o.PlantsPerZone = DefaultPlantsPerZone
	}
	if o.PlantsPerZone < 0 {
		return o, fmt.Errorf("%w: plants_per_zone must be positive, got %d", ErrInvalidOptions, o.PlantsPerZone)
	}
	if o.DiversityFactor == nil {
		d := DefaultDiversityFactor
		o.DiversityFactor = &d
	}
	if d := *o.DiversityFactor; d < 0 || d > 1 {
		return o, fmt.Errorf("%w: diversity_factor must be within [0,1], got %g", ErrInvalidOptions, d)
	}
	if len(o.Region) == 0 {
		o.Region = DefaultRegion
	}
	if o.Weights == nil {
		w := DefaultWeights()
		o.Weights = &w
	}
	if err := o.Weights.Validate(); err != nil {
		return o, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return o, nil
}

// Generate produces a design for the site from the catalog. Catalog order
// breaks score ties. An empty catalog yields ErrNoDesign; identical inputs
// yield identical designs.
func Generate(site domain.Site, catalog []domain.Plant, opts Options) (design domain.Design, err error) {
	defer func() {
		if r := recover(); r != nil {
			design = domain.Design{}
			err = fmt.Errorf("planner: generation failed: %v", r)
		}
	}()
	if len(catalog) == 0 {
		return domain.Design{}, ErrNoDesign
	}
	opts, err = opts.Resolve()
	if err != nil {
		return domain.Design{}, err
	}
	weights := *opts.Weights
	candidates := Prefilter(site, catalog, weights)

	design.Site = cloneSite(site)
	seen := make(map[string]struct{})
	for _, zone := range Partition(site) {
		ranked := ScoreZone(zone, candidates, opts.Region, weights)
		selections := Select(zone, ranked, opts.PlantsPerZone, *opts.DiversityFactor)
		design.Zones = append(design.Zones, domain.ZoneDesign{Zone: zone, Plants: selections})
		for _, sel := range selections {
			key := plantKey(sel.Plant)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			design.Plants = append(design.Plants, sel.Plant)
		}
	}
	design.Statistics = Aggregate(design.Zones, opts.Region)
	return design, nil
}

// plantKey identifies a catalog record: its ID, or its scientific name when
// the record was never stored.
func plantKey(p domain.Plant) string {
	if p.ID != "" {
		return "id:" + p.ID
	}
	return "name:" + p.ScientificName
}

func cloneSite(s domain.Site) domain.Site {
	cp := s
	if s.SunExposure != nil {
		cp.SunExposure = make(map[domain.SunExposure]float64, len(s.SunExposure))
		for k, v := range s.SunExposure {
			cp.SunExposure[k] = v
		}
	}
	if s.WaterConditions != nil {
		cp.WaterConditions = make(map[domain.WaterCondition]float64, len(s.WaterConditions))
		for k, v := range s.WaterConditions {
			cp.WaterConditions[k] = v
		}
	}
	if s.Slope != nil {
		slope := *s.Slope
		cp.Slope = &slope
	}
	cp.ExistingVegetation = append([]string(nil), s.ExistingVegetation...)
	cp.SpecialConditions = append([]string(nil), s.SpecialConditions...)
	cp.Zones = append([]domain.Zone(nil), s.Zones...)
	return cp
}
