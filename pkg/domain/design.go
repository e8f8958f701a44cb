package domain

// Verdict is the compatibility assessment of one plant against a site or zone.
type Verdict struct {
	Score float64 `json:"overall_score"`
	Zone  bool    `json:"zone_compatible"`
	Soil  bool    `json:"soil_compatible"`
	Sun   bool    `json:"sun_compatible"`
	Water bool    `json:"water_compatible"`
}

// Selection is one allocation entry: a plant chosen for a zone with a quantity.
type Selection struct {
	Plant    Plant   `json:"plant"`
	Score    float64 `json:"score"`
	Quantity int     `json:"quantity"`
	ZoneID   string  `json:"zone_id"`
}

// ZoneDesign pairs a zone with the plants selected for it.
type ZoneDesign struct {
	Zone   Zone        `json:"characteristics"`
	Plants []Selection `json:"plants"`
}

// Statistics summarises a completed allocation.
type Statistics struct {
	TotalPlants       int            `json:"total_plants"`
	PlantTypes        map[string]int `json:"plant_types"`
	NativePercentage  float64        `json:"native_percentage"`
	WaterUsageScore   float64        `json:"water_usage_score"`
	MaintenanceScore  float64        `json:"maintenance_score"`
	BiodiversityScore float64        `json:"biodiversity_score"`
}

// Design is the complete output of one generation call. It carries no
// identifiers or timestamps so identical inputs encode to identical bytes.
type Design struct {
	Site       Site         `json:"site"`
	Zones      []ZoneDesign `json:"zones"`
	Plants     []Plant      `json:"plant_selections"`
	Statistics Statistics   `json:"statistics"`
}

// DesignOptions are the caller-tunable generation parameters. A nil
// DiversityFactor means unspecified; zero is a legal factor.
type DesignOptions struct {
	PlantsPerZone   int      `json:"plants_per_zone,omitempty" yaml:"plants_per_zone,omitempty"`
	DiversityFactor *float64 `json:"diversity_factor,omitempty" yaml:"diversity_factor,omitempty"`
}

// DesignRecord is the persisted envelope around a generated design.
type DesignRecord struct {
	Base
	SiteID  string        `json:"site_id"`
	Options DesignOptions `json:"options"`
	Design  Design        `json:"design"`
}

// FileStem returns the conventional artifact name design_<site>_<timestamp>.
func (r DesignRecord) FileStem() string {
	name := r.Design.Site.Name
	if name == "" {
		name = r.SiteID
	}
	return "design_" + slug(name) + "_" + r.CreatedAt.UTC().Format("20060102150405")
}

func slug(in string) string {
	out := make([]rune, 0, len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
