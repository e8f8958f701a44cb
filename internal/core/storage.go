package core

import (
	"fmt"
	"os"

	"gardencore/internal/infra/persistence/memory"
	"gardencore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageConfig selects and parameterises a backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenStorage builds the backend named by cfg.Driver; empty means sqlite.
func OpenStorage(cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return NewPostgresStore(cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	GARDENCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	GARDENCORE_SQLITE_PATH: path to sqlite file (default ./gardencore.db)
//	GARDENCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	return OpenStorage(StorageConfig{
		Driver:      StorageDriver(os.Getenv("GARDENCORE_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("GARDENCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("GARDENCORE_POSTGRES_DSN"),
	}, engine)
}
