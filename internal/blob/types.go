// Package blob is the artifact storage facade. Callers depend on Store and
// obtain implementations from Open or the New* constructors.
package blob

import (
	"gardencore/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
	ErrInvalidKey  = core.ErrInvalidKey
)

// ContentTypeFor returns the MIME type used for an artifact key.
func ContentTypeFor(key string) string { return core.ContentTypeFor(key) }
