package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreatePlant(Plant) (Plant, error)
	UpdatePlant(id string, mutator func(*Plant) error) (Plant, error)
	DeletePlant(id string) error
	CreateSite(Site) (Site, error)
	UpdateSite(id string, mutator func(*Site) error) (Site, error)
	DeleteSite(id string) error
	CreateDesign(DesignRecord) (DesignRecord, error)
	DeleteDesign(id string) error
	FindPlant(id string) (Plant, bool)
	FindSite(id string) (Site, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPlant(id string) (Plant, bool)
	ListPlants() []Plant
	GetSite(id string) (Site, bool)
	ListSites() []Site
	GetDesign(id string) (DesignRecord, bool)
	ListDesigns() []DesignRecord
}
