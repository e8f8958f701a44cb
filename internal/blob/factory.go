package blob

import (
	"context"
	"fmt"
	"os"
)

// Config selects a backend explicitly.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// OpenConfig builds the backend named by cfg.Driver; empty means fs.
func OpenConfig(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// Open selects a blob.Store implementation using environment variables.
//
//	GARDENCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	GARDENCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./artifacts)
//	(S3 specific variables documented in s3.go)
func Open(ctx context.Context) (Store, error) {
	driver := Driver(os.Getenv("GARDENCORE_BLOB_DRIVER"))
	if driver == DriverS3 {
		return OpenFromEnv(ctx)
	}
	return OpenConfig(ctx, Config{Driver: driver, FSRoot: os.Getenv("GARDENCORE_BLOB_FS_ROOT")})
}
