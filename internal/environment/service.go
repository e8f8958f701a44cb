package environment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"gardencore/pkg/domain"
)

// Soil is the dominant soil component at a location.
type Soil struct {
	Type          domain.SoilType `json:"type"`
	PH            float64         `json:"ph"`
	ComponentName string          `json:"component_name"`
	SandPercent   float64         `json:"sand_percent"`
	SiltPercent   float64         `json:"silt_percent"`
	ClayPercent   float64         `json:"clay_percent"`
}

// Climate holds long-run climate normals for a location.
type Climate struct {
	AnnualPrecipitation float64 `json:"annual_precipitation"`
	AvgTemperature      float64 `json:"avg_temperature"`
	GrowingSeasonDays   int     `json:"growing_season_days"`
	LastFrostDate       string  `json:"last_frost_date,omitempty"`
	FirstFrostDate      string  `json:"first_frost_date,omitempty"`
}

// DefaultSoil is used when no soil survey data is available.
func DefaultSoil() Soil {
	return Soil{Type: domain.SoilLoam, PH: 6.5, ComponentName: "Unknown", SandPercent: 40, SiltPercent: 40, ClayPercent: 20}
}

// DefaultClimate is used when no climate data is available.
func DefaultClimate() Climate {
	return Climate{AnnualPrecipitation: 46.0, AvgTemperature: 60.0, GrowingSeasonDays: 210, LastFrostDate: "04-15", FirstFrostDate: "11-01"}
}

// SoilSource looks up soil survey data.
type SoilSource interface {
	Soil(ctx context.Context, latitude, longitude float64) (Soil, error)
}

// ClimateSource looks up climate normals.
type ClimateSource interface {
	Climate(ctx context.Context, latitude, longitude float64) (Climate, error)
}

// SoilFunc adapts a function to SoilSource.
type SoilFunc func(ctx context.Context, latitude, longitude float64) (Soil, error)

// Soil implements SoilSource.
func (f SoilFunc) Soil(ctx context.Context, latitude, longitude float64) (Soil, error) {
	return f(ctx, latitude, longitude)
}

// ClimateFunc adapts a function to ClimateSource.
type ClimateFunc func(ctx context.Context, latitude, longitude float64) (Climate, error)

// Climate implements ClimateSource.
func (f ClimateFunc) Climate(ctx context.Context, latitude, longitude float64) (Climate, error) {
	return f(ctx, latitude, longitude)
}

type staticSource struct{}

func (staticSource) Soil(context.Context, float64, float64) (Soil, error)       { return DefaultSoil(), nil }
func (staticSource) Climate(context.Context, float64, float64) (Climate, error) { return DefaultClimate(), nil }

// Report is the environmental picture of a site at a location.
type Report struct {
	Latitude        float64                           `json:"latitude"`
	Longitude       float64                           `json:"longitude"`
	Area            float64                           `json:"area"`
	Soil            Soil                              `json:"soil"`
	Climate         Climate                           `json:"climate"`
	HardinessZone   string                            `json:"hardiness_zone"`
	SunExposure     map[domain.SunExposure]float64    `json:"sun_exposure"`
	WaterConditions map[domain.WaterCondition]float64 `json:"water_conditions"`
	DataSources     []string                          `json:"data_sources"`
	Warnings        []string                          `json:"warnings,omitempty"`
}

// ApplyTo fills the environmental fields site leaves unset and returns the
// result. Values the caller measured are never replaced.
func (r Report) ApplyTo(site domain.Site) domain.Site {
	if site.Location.Latitude == 0 && site.Location.Longitude == 0 {
		site.Location.Latitude = r.Latitude
		site.Location.Longitude = r.Longitude
	}
	if site.SoilType == "" {
		site.SoilType = r.Soil.Type
	}
	if site.SoilPH == 0 {
		site.SoilPH = r.Soil.PH
	}
	if site.HardinessZone == "" {
		site.HardinessZone = r.HardinessZone
	}
	if len(site.SunExposure) == 0 {
		site.SunExposure = make(map[domain.SunExposure]float64, len(r.SunExposure))
		for k, v := range r.SunExposure {
			site.SunExposure[k] = v
		}
	}
	if len(site.WaterConditions) == 0 {
		site.WaterConditions = make(map[domain.WaterCondition]float64, len(r.WaterConditions))
		for k, v := range r.WaterConditions {
			site.WaterConditions[k] = v
		}
	}
	return site
}

// ErrInvalidLocation is returned for coordinates outside the valid ranges.
var ErrInvalidLocation = errors.New("invalid location")

// DefaultCacheTTL bounds how long a location lookup is reused.
const DefaultCacheTTL = 24 * time.Hour

const defaultCacheSize = 256

var dataSources = []string{"USDA NRCS Soil Survey", "NOAA Climate Data", "USDA Plant Hardiness Zone Map"}

type location struct {
	soil     Soil
	climate  Climate
	warnings []string
}

// Service combines soil and climate sources into site reports.
type Service struct {
	soil    SoilSource
	climate ClimateSource
	cache   *expirable.LRU[string, location]
}

// Option configures a Service.
type Option func(*serviceConfig)

type serviceConfig struct {
	soil      SoilSource
	climate   ClimateSource
	ttl       time.Duration
	cacheSize int
}

// WithSoilSource replaces the default soil data.
func WithSoilSource(src SoilSource) Option {
	return func(c *serviceConfig) {
		if src != nil {
			c.soil = src
		}
	}
}

// WithClimateSource replaces the default climate data.
func WithClimateSource(src ClimateSource) Option {
	return func(c *serviceConfig) {
		if src != nil {
			c.climate = src
		}
	}
}

// WithCache sets the lookup cache size and entry lifetime.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *serviceConfig) {
		if size > 0 {
			c.cacheSize = size
		}
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewService builds a Service. Without sources it reports the regional defaults.
func NewService(opts ...Option) *Service {
	cfg := serviceConfig{soil: staticSource{}, climate: staticSource{}, ttl: DefaultCacheTTL, cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service{
		soil:    cfg.soil,
		climate: cfg.climate,
		cache:   expirable.NewLRU[string, location](cfg.cacheSize, nil, cfg.ttl),
	}
}

// CacheKey identifies a location to four decimal places.
func CacheKey(latitude, longitude float64) string {
	return fmt.Sprintf("%.4f_%.4f", latitude, longitude)
}

// Lookup reports conditions for a site of area square feet at the location.
// Source failures fall back to defaults and are listed in Report.Warnings.
func (s *Service) Lookup(ctx context.Context, latitude, longitude, area float64) (Report, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return Report{}, fmt.Errorf("%w: %f,%f", ErrInvalidLocation, latitude, longitude)
	}
	if area < 0 {
		return Report{}, fmt.Errorf("%w: negative area %f", ErrInvalidLocation, area)
	}
	if area == 0 {
		area = DefaultArea
	}

	key := CacheKey(latitude, longitude)
	loc, ok := s.cache.Get(key)
	if !ok {
		var err error
		loc, err = s.fetch(ctx, latitude, longitude)
		if err != nil {
			return Report{}, err
		}
		s.cache.Add(key, loc)
	}

	return Report{
		Latitude:        latitude,
		Longitude:       longitude,
		Area:            area,
		Soil:            loc.soil,
		Climate:         loc.climate,
		HardinessZone:   HardinessZone(latitude),
		SunExposure:     EstimateSun(latitude, area),
		WaterConditions: EstimateWater(loc.climate.AnnualPrecipitation, area),
		DataSources:     append([]string(nil), dataSources...),
		Warnings:        append([]string(nil), loc.warnings...),
	}, nil
}

func (s *Service) fetch(ctx context.Context, latitude, longitude float64) (location, error) {
	var loc location
	soil, err := s.soil.Soil(ctx, latitude, longitude)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return location{}, ctxErr
	}
	if err != nil {
		soil = DefaultSoil()
		loc.warnings = append(loc.warnings, fmt.Sprintf("soil data unavailable: %v", err))
	} else if soil.Type == "" {
		soil.Type = ClassifySoilTexture(soil.SandPercent, soil.SiltPercent, soil.ClayPercent)
	}
	if soil.PH == 0 {
		soil.PH = DefaultSoil().PH
	}

	climate, err := s.climate.Climate(ctx, latitude, longitude)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return location{}, ctxErr
	}
	if err != nil {
		climate = DefaultClimate()
		loc.warnings = append(loc.warnings, fmt.Sprintf("climate data unavailable: %v", err))
	}
	loc.soil = soil
	loc.climate = climate
	return loc, nil
}

// Purge drops every cached location.
func (s *Service) Purge() {
	s.cache.Purge()
}
