package core

import "gardencore/internal/infra/persistence/sqlite"

// NewSQLiteStore opens the SQLite-backed store at path (empty selects sqlite.DefaultPath).
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}
