package planner

import (
	"fmt"

	"gardencore/pkg/domain"
)

// Partition derives zones from the site's sun and water breakdowns. A site
// carrying predefined zones gets them back unchanged. Otherwise every pair of
// positive sun and water areas yields a zone whose area assumes the two
// fractions are independent. When nothing qualifies a single full_sun/medium
// zone covers the whole site.
func Partition(site domain.Site) []domain.Zone {
	if len(site.Zones) > 0 {
		return append([]domain.Zone(nil), site.Zones...)
	}
	total := site.TotalArea()
	var zones []domain.Zone
	if total > 0 {
		for _, sun := range site.SunCategories() {
			sunArea := site.SunExposure[sun]
			if sunArea <= 0 {
				continue
			}
			for _, water := range site.WaterCategories() {
				waterArea := site.WaterConditions[water]
				if waterArea <= 0 {
					continue
				}
				overlap := (sunArea / total) * (waterArea / total) * total
				if overlap <= 0 {
					continue
				}
				zones = append(zones, domain.Zone{
					ID:             fmt.Sprintf("zone_%d", len(zones)+1),
					SunExposure:    sun,
					WaterCondition: water,
					SoilType:       site.SoilType,
					SoilPH:         site.SoilPH,
					Area:           overlap,
					Percentage:     overlap / total * 100,
				})
			}
		}
	}
	if len(zones) == 0 {
		zones = append(zones, domain.Zone{
			ID:             "zone_1",
			SunExposure:    domain.SunFull,
			WaterCondition: domain.WaterMedium,
			SoilType:       site.SoilType,
			SoilPH:         site.SoilPH,
			Area:           total,
			Percentage:     100,
		})
	}
	return zones
}
