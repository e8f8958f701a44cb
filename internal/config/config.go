// Package config loads gardencore settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"gardencore/internal/blob"
	"gardencore/internal/core"
	"gardencore/internal/events"
	"gardencore/internal/logging"
	"gardencore/internal/planner"
	"gardencore/pkg/domain"
)

// Config is every GARDENCORE_* setting with its default.
type Config struct {
	// Storage
	StorageDriver string `env:"GARDENCORE_STORAGE_DRIVER" env-default:"sqlite" validate:"oneof=memory sqlite postgres"`
	SQLitePath    string `env:"GARDENCORE_SQLITE_PATH" env-default:"./gardencore.db"`
	PostgresDSN   string `env:"GARDENCORE_POSTGRES_DSN" validate:"required_if=StorageDriver postgres"`

	// Artifacts
	BlobDriver      string `env:"GARDENCORE_BLOB_DRIVER" env-default:"fs" validate:"oneof=fs s3 memory"`
	BlobFSRoot      string `env:"GARDENCORE_BLOB_FS_ROOT" env-default:"./artifacts"`
	BlobS3Bucket    string `env:"GARDENCORE_BLOB_S3_BUCKET" validate:"required_if=BlobDriver s3"`
	BlobS3Region    string `env:"GARDENCORE_BLOB_S3_REGION" env-default:"us-east-1"`
	BlobS3Endpoint  string `env:"GARDENCORE_BLOB_S3_ENDPOINT"`
	BlobS3Prefix    string `env:"GARDENCORE_BLOB_S3_PREFIX"`
	BlobS3PathStyle bool   `env:"GARDENCORE_BLOB_S3_PATH_STYLE" env-default:"false"`

	// HTTP and logging
	HTTPAddr  string `env:"GARDENCORE_HTTP_ADDR" env-default:":8080" validate:"required"`
	LogLevel  string `env:"GARDENCORE_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"GARDENCORE_LOG_FORMAT" env-default:"console" validate:"oneof=console json"`

	// Events
	KafkaBrokers []string `env:"GARDENCORE_KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `env:"GARDENCORE_KAFKA_TOPIC" env-default:"gardencore.designs"`

	// Location defaults (Fayetteville, AR)
	LocationLabel  string        `env:"GARDENCORE_LOCATION_LABEL" env-default:"Fayetteville, AR"`
	Latitude       float64       `env:"GARDENCORE_LATITUDE" env-default:"36.0764" validate:"gte=-90,lte=90"`
	Longitude      float64       `env:"GARDENCORE_LONGITUDE" env-default:"-94.2088" validate:"gte=-180,lte=180"`
	HardinessZone  string        `env:"GARDENCORE_HARDINESS_ZONE" env-default:"7a"`
	NativeRegion   []string      `env:"GARDENCORE_NATIVE_REGION" env-separator:"," env-default:"Arkansas,AR" validate:"min=1"`
	CatalogPath    string        `env:"GARDENCORE_CATALOG_PATH" env-default:"data/plants/plant_database.json"`
	EnvironmentTTL time.Duration `env:"GARDENCORE_ENVIRONMENT_CACHE_TTL" env-default:"24h" validate:"gt=0"`

	// Design defaults
	PlantsPerZone   int     `env:"GARDENCORE_PLANTS_PER_ZONE" env-default:"5" validate:"gte=1"`
	DiversityFactor float64 `env:"GARDENCORE_DIVERSITY_FACTOR" env-default:"0.7" validate:"gte=0,lte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load applies envFile (or ./.env when envFile is empty and the file exists)
// to the process environment and then reads Config from it. Variables already
// set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Storage returns the persistence backend selection.
func (c Config) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}

// Blob returns the artifact store selection.
func (c Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.BlobDriver),
		FSRoot: c.BlobFSRoot,
		S3: blob.S3Config{
			Region:    c.BlobS3Region,
			Bucket:    c.BlobS3Bucket,
			Prefix:    c.BlobS3Prefix,
			Endpoint:  c.BlobS3Endpoint,
			PathStyle: c.BlobS3PathStyle,
		},
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	return cfg
}

// Kafka returns the event sink settings and whether any broker is configured.
func (c Config) Kafka() (events.KafkaConfig, bool) {
	return events.KafkaConfig{Brokers: c.KafkaBrokers, Topic: c.KafkaTopic}, len(c.KafkaBrokers) > 0
}

// DesignDefaults returns the generation defaults applied to every request.
func (c Config) DesignDefaults() planner.Options {
	factor := c.DiversityFactor
	return planner.Options{
		DesignOptions: domain.DesignOptions{PlantsPerZone: c.PlantsPerZone, DiversityFactor: &factor},
		Region:        append([]string(nil), c.NativeRegion...),
	}
}

// Location returns the default site location.
func (c Config) Location() domain.Location {
	return domain.Location{Label: c.LocationLabel, Latitude: c.Latitude, Longitude: c.Longitude}
}
