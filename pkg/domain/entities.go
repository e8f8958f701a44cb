// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by gardencore.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPlant identifies a catalog plant record.
	EntityPlant EntityType = "plant"
	// EntitySite identifies a site record.
	EntitySite EntityType = "site"
	// EntityDesign identifies a persisted design record.
	EntityDesign EntityType = "design"
)

// SunExposure names a light condition category.
type SunExposure string

// Canonical sun exposure categories, ordered from most to least light.
const (
	SunFull      SunExposure = "full_sun"
	SunPart      SunExposure = "part_sun"
	SunPartShade SunExposure = "part_shade"
	SunFullShade SunExposure = "full_shade"
)

// SunExposures lists the canonical sun categories in iteration order.
var SunExposures = []SunExposure{SunFull, SunPart, SunPartShade, SunFullShade}

// WaterCondition names a moisture regime. A plant's water need uses the same vocabulary.
type WaterCondition string

// Canonical water categories, ordered from driest to wettest. Low and high are
// accepted as plant demand tiers.
const (
	WaterDry       WaterCondition = "dry"
	WaterMediumDry WaterCondition = "medium_dry"
	WaterMedium    WaterCondition = "medium"
	WaterMediumWet WaterCondition = "medium_wet"
	WaterWet       WaterCondition = "wet"
	WaterLow       WaterCondition = "low"
	WaterHigh      WaterCondition = "high"
)

// WaterConditions lists the canonical site water categories in iteration order.
var WaterConditions = []WaterCondition{WaterDry, WaterMediumDry, WaterMedium, WaterMediumWet, WaterWet}

// SoilType names a soil texture class.
type SoilType string

// Soil types recognised by the environment estimator and catalog.
const (
	SoilClay          SoilType = "clay"
	SoilLoam          SoilType = "loam"
	SoilSandy         SoilType = "sandy"
	SoilSilty         SoilType = "silty"
	SoilChalky        SoilType = "chalky"
	SoilSandyClay     SoilType = "sandy_clay"
	SoilSiltyClay     SoilType = "silty_clay"
	SoilSandyClayLoam SoilType = "sandy_clay_loam"
	SoilSiltyClayLoam SoilType = "silty_clay_loam"
	SoilSandyLoam     SoilType = "sandy_loam"
	SoilSiltyLoam     SoilType = "silty_loam"
)

// MaintenanceTier captures the upkeep a plant needs. The empty value means unspecified.
type MaintenanceTier string

// Maintenance tiers.
const (
	MaintenanceLow    MaintenanceTier = "low"
	MaintenanceMedium MaintenanceTier = "medium"
	MaintenanceHigh   MaintenanceTier = "high"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// ErrSiteInUse blocks deleting a site that a stored design still refers to.
var ErrSiteInUse = errors.New("site in use")

// DefaultPHRange is applied when a plant declares no pH tolerance.
var DefaultPHRange = Range{Min: 5.5, Max: 7.5}

// Base contains fields common to persisted records.
type Base struct {
	ID        string    `json:"id" yaml:"id,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at,omitempty"`
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min" yaml:"min" validate:"gte=0"`
	Max float64 `json:"max" yaml:"max" validate:"gte=0"`
}

// Contains reports whether v lies within the inclusive range.
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// Mean returns the midpoint of the range.
func (r Range) Mean() float64 {
	return (r.Min + r.Max) / 2
}

// Valid reports whether the range is non-negative and ordered.
func (r Range) Valid() bool {
	return r.Min >= 0 && r.Max >= 0 && r.Min <= r.Max
}

// UnmarshalJSON accepts either {"min":a,"max":b} or the [a, b] pair form.
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		return r.fromPair(pair)
	}
	type plain Range
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Range(obj)
	return nil
}

// UnmarshalYAML accepts the same two shapes as UnmarshalJSON.
func (r *Range) UnmarshalYAML(unmarshal func(any) error) error {
	var pair []float64
	if err := unmarshal(&pair); err == nil {
		return r.fromPair(pair)
	}
	type plain Range
	var obj plain
	if err := unmarshal(&obj); err != nil {
		return err
	}
	*r = Range(obj)
	return nil
}

func (r *Range) fromPair(pair []float64) error {
	if pair == nil {
		return nil
	}
	if len(pair) != 2 {
		return fmt.Errorf("range needs exactly two values, got %d", len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// Plant is an immutable catalog record describing one species' tolerances and traits.
// Empty slices and empty strings mean "no preference" and are treated as tolerant.
type Plant struct {
	Base               `yaml:",inline"`
	ScientificName     string          `json:"scientific_name" yaml:"scientific_name" validate:"required"`
	CommonName         string          `json:"common_name" yaml:"common_name"`
	Category           string          `json:"plant_type" yaml:"plant_type" validate:"required"`
	NativeRange        []string        `json:"native_range,omitempty" yaml:"native_range,omitempty"`
	HardinessZone      string          `json:"usda_hardiness_zone,omitempty" yaml:"usda_hardiness_zone,omitempty"`
	HeightRange        Range           `json:"height_range" yaml:"height_range"`
	SpreadRange        Range           `json:"spread_range" yaml:"spread_range"`
	BloomTime          []string        `json:"bloom_time,omitempty" yaml:"bloom_time,omitempty"`
	BloomColor         []string        `json:"bloom_color,omitempty" yaml:"bloom_color,omitempty"`
	SunExposure        []SunExposure   `json:"sun_exposure,omitempty" yaml:"sun_exposure,omitempty"`
	WaterNeeds         WaterCondition  `json:"water_needs,omitempty" yaml:"water_needs,omitempty"`
	SoilTypes          []SoilType      `json:"soil_type,omitempty" yaml:"soil_type,omitempty"`
	SoilPH             *Range          `json:"soil_ph,omitempty" yaml:"soil_ph,omitempty"`
	Maintenance        MaintenanceTier `json:"maintenance_level,omitempty" yaml:"maintenance_level,omitempty" validate:"omitempty,oneof=low medium high"`
	EcologicalBenefits []string        `json:"ecological_benefits,omitempty" yaml:"ecological_benefits,omitempty"`
	SpecialFeatures    []string        `json:"special_features,omitempty" yaml:"special_features,omitempty"`
	ImageURL           string          `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	DataSource         string          `json:"data_source,omitempty" yaml:"data_source,omitempty"`
}

// PH returns the declared pH tolerance or the default range when unspecified.
func (p Plant) PH() Range {
	if p.SoilPH == nil {
		return DefaultPHRange
	}
	return *p.SoilPH
}

// NativeTo reports whether any native range entry matches one of the region identifiers.
func (p Plant) NativeTo(region []string) bool {
	for _, r := range p.NativeRange {
		for _, want := range region {
			if r == want {
				return true
			}
		}
	}
	return false
}

// Location pins a site to a geographic point.
type Location struct {
	Label     string  `json:"label,omitempty" yaml:"label,omitempty"`
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// Dimensions describes the rectangular footprint of a site.
type Dimensions struct {
	Width  float64 `json:"width" yaml:"width" validate:"gte=0"`
	Length float64 `json:"length" yaml:"length" validate:"gte=0"`
}

// Slope captures terrain orientation.
type Slope struct {
	Direction  string  `json:"direction,omitempty" yaml:"direction,omitempty"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// Site is the physical area being designed.
type Site struct {
	Base               `yaml:",inline"`
	Name               string                     `json:"name" yaml:"name" validate:"required"`
	Location           Location                   `json:"location" yaml:"location"`
	Dimensions         Dimensions                 `json:"dimensions" yaml:"dimensions"`
	SoilType           SoilType                   `json:"soil_type,omitempty" yaml:"soil_type,omitempty"`
	SoilPH             float64                    `json:"soil_ph" yaml:"soil_ph"`
	SunExposure        map[SunExposure]float64    `json:"sun_exposure,omitempty" yaml:"sun_exposure,omitempty"`
	WaterConditions    map[WaterCondition]float64 `json:"water_conditions,omitempty" yaml:"water_conditions,omitempty"`
	Slope              *Slope                     `json:"slope,omitempty" yaml:"slope,omitempty"`
	ExistingVegetation []string                   `json:"existing_vegetation,omitempty" yaml:"existing_vegetation,omitempty"`
	HardinessZone      string                     `json:"hardiness_zone,omitempty" yaml:"hardiness_zone,omitempty"`
	SpecialConditions  []string                   `json:"special_conditions,omitempty" yaml:"special_conditions,omitempty"`
	Zones              []Zone                     `json:"zones,omitempty" yaml:"zones,omitempty"`
}

// TotalArea returns width × length.
func (s Site) TotalArea() float64 {
	return s.Dimensions.Width * s.Dimensions.Length
}

// SunExposurePercentage returns the share of the site with the given exposure (0 when undefined).
func (s Site) SunExposurePercentage(exposure SunExposure) float64 {
	total := s.TotalArea()
	if len(s.SunExposure) == 0 || total == 0 {
		return 0
	}
	return s.SunExposure[exposure] / total * 100
}

// WaterConditionPercentage returns the share of the site with the given water condition.
func (s Site) WaterConditionPercentage(condition WaterCondition) float64 {
	total := s.TotalArea()
	if len(s.WaterConditions) == 0 || total == 0 {
		return 0
	}
	return s.WaterConditions[condition] / total * 100
}

// SunCategories returns the declared sun categories in canonical order followed
// by unknown keys in lexical order.
func (s Site) SunCategories() []SunExposure {
	keys := make([]string, 0, len(s.SunExposure))
	for k := range s.SunExposure {
		keys = append(keys, string(k))
	}
	canon := make([]string, len(SunExposures))
	for i, k := range SunExposures {
		canon[i] = string(k)
	}
	ordered := orderKeys(keys, canon)
	out := make([]SunExposure, len(ordered))
	for i, k := range ordered {
		out[i] = SunExposure(k)
	}
	return out
}

// WaterCategories returns the declared water categories in canonical order
// followed by unknown keys in lexical order.
func (s Site) WaterCategories() []WaterCondition {
	keys := make([]string, 0, len(s.WaterConditions))
	for k := range s.WaterConditions {
		keys = append(keys, string(k))
	}
	canon := make([]string, len(WaterConditions))
	for i, k := range WaterConditions {
		canon[i] = string(k)
	}
	ordered := orderKeys(keys, canon)
	out := make([]WaterCondition, len(ordered))
	for i, k := range ordered {
		out[i] = WaterCondition(k)
	}
	return out
}

func orderKeys(keys, canonical []string) []string {
	rank := make(map[string]int, len(canonical))
	for i, k := range canonical {
		rank[k] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := rank[keys[i]]
		rj, jok := rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Zone is a derived sub-region of a site sharing one sun/water condition pair.
type Zone struct {
	ID             string         `json:"id" yaml:"id"`
	SunExposure    SunExposure    `json:"sun_exposure" yaml:"sun_exposure"`
	WaterCondition WaterCondition `json:"water_condition" yaml:"water_condition"`
	SoilType       SoilType       `json:"soil_type,omitempty" yaml:"soil_type,omitempty"`
	SoilPH         float64        `json:"soil_ph" yaml:"soil_ph"`
	Area           float64        `json:"area" yaml:"area"`
	Percentage     float64        `json:"percentage" yaml:"percentage"`
}

// Change describes a mutation applied to an entity within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a rule failure.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
