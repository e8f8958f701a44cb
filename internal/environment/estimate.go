// Package environment estimates site conditions from a geographic location.
package environment

import (
	"gardencore/pkg/domain"
)

// DefaultArea is the site area in square feet assumed when none is given.
const DefaultArea = 1000.0

// ClassifySoilTexture maps sand, silt and clay percentages onto a texture class.
func ClassifySoilTexture(sand, silt, clay float64) domain.SoilType {
	switch {
	case clay >= 40:
		return domain.SoilClay
	case sand >= 85:
		return domain.SoilSandy
	case silt >= 80:
		return domain.SoilSilty
	case clay >= 35 && sand >= 45:
		return domain.SoilSandyClay
	case clay >= 35 && silt >= 45:
		return domain.SoilSiltyClay
	case clay >= 20 && sand >= 45 && silt >= 15:
		return domain.SoilSandyClayLoam
	case clay >= 20 && silt >= 45 && sand >= 15:
		return domain.SoilSiltyClayLoam
	case sand >= 45 && clay < 20:
		return domain.SoilSandyLoam
	case silt >= 50 && clay < 20:
		return domain.SoilSiltyLoam
	default:
		return domain.SoilLoam
	}
}

var hardinessBands = []struct {
	below float64
	zone  string
}{
	{28, "9b"}, {30, "9a"}, {32, "8b"}, {34, "8a"}, {36, "7b"},
	{38, "7a"}, {40, "6b"}, {42, "6a"}, {44, "5b"},
}

// HardinessZone approximates the USDA hardiness zone from latitude alone.
func HardinessZone(latitude float64) string {
	for _, b := range hardinessBands {
		if latitude < b.below {
			return b.zone
		}
	}
	return "5a"
}

// EstimateSun splits area across the four sun categories. Northern sites get
// less full sun; the full shade share takes the remainder.
func EstimateSun(latitude, area float64) map[domain.SunExposure]float64 {
	if area <= 0 {
		area = DefaultArea
	}
	factor := clamp((50-latitude)/30, 0.2, 0.8)
	fullSun := factor * 0.7
	partSun, partShade := 0.2, 0.2
	return map[domain.SunExposure]float64{
		domain.SunFull:      area * fullSun,
		domain.SunPart:      area * partSun,
		domain.SunPartShade: area * partShade,
		domain.SunFullShade: area * (1 - fullSun - partSun - partShade),
	}
}

// EstimateWater splits area into dry, medium and wet shares driven by annual
// precipitation in inches.
func EstimateWater(precipitation, area float64) map[domain.WaterCondition]float64 {
	if area <= 0 {
		area = DefaultArea
	}
	factor := min(1.0, precipitation/50.0)
	dry := 0.3 * (1 - factor)
	wet := 0.3 * factor
	return map[domain.WaterCondition]float64{
		domain.WaterDry:    area * dry,
		domain.WaterMedium: area * (1 - dry - wet),
		domain.WaterWet:    area * wet,
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
