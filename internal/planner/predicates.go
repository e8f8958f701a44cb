package planner

import (
	"strconv"
	"strings"
	"unicode"

	"gardencore/pkg/domain"
)

// ParseZone converts a hardiness zone designation to a comparable number.
// "7a" is 7, "7b" is 7.5, and a bare value such as "7" or "7.5" parses as a float.
func ParseZone(zone string) (float64, bool) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return 0, false
	}
	last := rune(zone[len(zone)-1])
	if unicode.IsLetter(last) {
		base, err := strconv.Atoi(strings.TrimSpace(zone[:len(zone)-1]))
		if err != nil {
			return 0, false
		}
		if unicode.ToLower(last) == 'b' {
			return float64(base) + 0.5, true
		}
		return float64(base), true
	}
	v, err := strconv.ParseFloat(zone, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ZoneCompatible reports whether target lies within the plant's hardiness range.
// Missing or malformed data on either side is treated as compatible.
func ZoneCompatible(p domain.Plant, target string) bool {
	if strings.TrimSpace(p.HardinessZone) == "" {
		return true
	}
	parts := strings.Split(p.HardinessZone, "-")
	if len(parts) > 2 {
		return true
	}
	lo, ok := ParseZone(parts[0])
	if !ok {
		return true
	}
	hi := lo
	if len(parts) == 2 {
		if hi, ok = ParseZone(parts[1]); !ok {
			return true
		}
	}
	v, ok := ParseZone(target)
	if !ok {
		return true
	}
	return lo <= v && v <= hi
}

// SoilCompatible reports whether the soil type is tolerated and pH falls in range.
func SoilCompatible(p domain.Plant, soil domain.SoilType, ph float64) bool {
	typeOK := len(p.SoilTypes) == 0
	for _, s := range p.SoilTypes {
		if s == soil {
			typeOK = true
			break
		}
	}
	return typeOK && p.PH().Contains(ph)
}

// SunCompatible reports whether the plant tolerates the sun category.
func SunCompatible(p domain.Plant, sun domain.SunExposure) bool {
	if len(p.SunExposure) == 0 {
		return true
	}
	for _, s := range p.SunExposure {
		if s == sun {
			return true
		}
	}
	return false
}

// WaterCompatible reports whether the plant's single water tier equals the category.
func WaterCompatible(p domain.Plant, water domain.WaterCondition) bool {
	return p.WaterNeeds == "" || p.WaterNeeds == water
}
