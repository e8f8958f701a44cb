// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"gardencore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Plant aliases domain.Plant for in-memory persistence operations.
	Plant = domain.Plant
	// Site aliases domain.Site.
	Site = domain.Site
	// DesignRecord aliases domain.DesignRecord.
	DesignRecord = domain.DesignRecord
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// memoryState keeps plants in insertion order because catalog order breaks
// score ties during design generation.
type memoryState struct {
	plants     map[string]Plant
	plantOrder []string
	sites      map[string]Site
	designs    map[string]DesignRecord
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Plants     map[string]Plant        `json:"plants"`
	PlantOrder []string                `json:"plant_order"`
	Sites      map[string]Site         `json:"sites"`
	Designs    map[string]DesignRecord `json:"designs"`
}

func newMemoryState() memoryState {
	return memoryState{
		plants:  make(map[string]Plant),
		sites:   make(map[string]Site),
		designs: make(map[string]DesignRecord),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Plants:     make(map[string]Plant, len(state.plants)),
		PlantOrder: append([]string(nil), state.plantOrder...),
		Sites:      make(map[string]Site, len(state.sites)),
		Designs:    make(map[string]DesignRecord, len(state.designs)),
	}
	for k, v := range state.plants {
		s.Plants[k] = clonePlant(v)
	}
	for k, v := range state.sites {
		s.Sites[k] = cloneSite(v)
	}
	for k, v := range state.designs {
		s.Designs[k] = cloneDesign(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Plants {
		state.plants[k] = clonePlant(v)
	}
	state.plantOrder = append([]string(nil), s.PlantOrder...)
	for k, v := range s.Sites {
		state.sites[k] = cloneSite(v)
	}
	for k, v := range s.Designs {
		state.designs[k] = cloneDesign(v)
	}
	return state
}

// migrateSnapshot repairs snapshots written by older builds or by hand: nil
// buckets become empty, the plant order is reconciled with the plant bucket
// and designs pointing at deleted sites are dropped.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Plants == nil {
		snapshot.Plants = map[string]Plant{}
	}
	if snapshot.Sites == nil {
		snapshot.Sites = map[string]Site{}
	}
	if snapshot.Designs == nil {
		snapshot.Designs = map[string]DesignRecord{}
	}

	seen := make(map[string]struct{}, len(snapshot.Plants))
	order := make([]string, 0, len(snapshot.Plants))
	for _, id := range snapshot.PlantOrder {
		if _, ok := snapshot.Plants[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	var orphans []string
	for id := range snapshot.Plants {
		if _, ok := seen[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		a, b := snapshot.Plants[orphans[i]], snapshot.Plants[orphans[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return orphans[i] < orphans[j]
	})
	snapshot.PlantOrder = append(order, orphans...)

	for id, design := range snapshot.Designs {
		if design.SiteID == "" {
			continue
		}
		if _, ok := snapshot.Sites[design.SiteID]; !ok {
			delete(snapshot.Designs, id)
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

func (s memoryState) orderedPlants() []Plant {
	out := make([]Plant, 0, len(s.plantOrder))
	for _, id := range s.plantOrder {
		if p, ok := s.plants[id]; ok {
			out = append(out, clonePlant(p))
		}
	}
	return out
}

func (s memoryState) sortedSites() []Site {
	out := make([]Site, 0, len(s.sites))
	for _, v := range s.sites {
		out = append(out, cloneSite(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s memoryState) sortedDesigns() []DesignRecord {
	out := make([]DesignRecord, 0, len(s.designs))
	for _, v := range s.designs {
		out = append(out, cloneDesign(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clonePlant(p Plant) Plant {
	cp := p
	cp.NativeRange = append([]string(nil), p.NativeRange...)
	cp.BloomTime = append([]string(nil), p.BloomTime...)
	cp.BloomColor = append([]string(nil), p.BloomColor...)
	cp.SunExposure = append([]domain.SunExposure(nil), p.SunExposure...)
	cp.SoilTypes = append([]domain.SoilType(nil), p.SoilTypes...)
	cp.EcologicalBenefits = append([]string(nil), p.EcologicalBenefits...)
	cp.SpecialFeatures = append([]string(nil), p.SpecialFeatures...)
	if p.SoilPH != nil {
		ph := *p.SoilPH
		cp.SoilPH = &ph
	}
	return cp
}

func cloneSite(s Site) Site {
	cp := s
	if s.SunExposure != nil {
		cp.SunExposure = make(map[domain.SunExposure]float64, len(s.SunExposure))
		for k, v := range s.SunExposure {
			cp.SunExposure[k] = v
		}
	}
	if s.WaterConditions != nil {
		cp.WaterConditions = make(map[domain.WaterCondition]float64, len(s.WaterConditions))
		for k, v := range s.WaterConditions {
			cp.WaterConditions[k] = v
		}
	}
	if s.Slope != nil {
		slope := *s.Slope
		cp.Slope = &slope
	}
	cp.ExistingVegetation = append([]string(nil), s.ExistingVegetation...)
	cp.SpecialConditions = append([]string(nil), s.SpecialConditions...)
	cp.Zones = append([]domain.Zone(nil), s.Zones...)
	return cp
}

func cloneDesign(r DesignRecord) DesignRecord {
	cp := r
	if r.Options.DiversityFactor != nil {
		d := *r.Options.DiversityFactor
		cp.Options.DiversityFactor = &d
	}
	cp.Design.Site = cloneSite(r.Design.Site)
	cp.Design.Zones = make([]domain.ZoneDesign, len(r.Design.Zones))
	for i, z := range r.Design.Zones {
		sel := make([]domain.Selection, len(z.Plants))
		for j, s := range z.Plants {
			s.Plant = clonePlant(s.Plant)
			sel[j] = s
		}
		cp.Design.Zones[i] = domain.ZoneDesign{Zone: z.Zone, Plants: sel}
	}
	cp.Design.Plants = make([]Plant, len(r.Design.Plants))
	for i, p := range r.Design.Plants {
		cp.Design.Plants[i] = clonePlant(p)
	}
	if r.Design.Statistics.PlantTypes != nil {
		cp.Design.Statistics.PlantTypes = make(map[string]int, len(r.Design.Statistics.PlantTypes))
		for k, v := range r.Design.Statistics.PlantTypes {
			cp.Design.Statistics.PlantTypes[k] = v
		}
	}
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points like plugins.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider used to stamp entities.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListPlants returns all plants in catalog order.
func (v transactionView) ListPlants() []Plant { return v.state.orderedPlants() }

// ListSites returns all sites ordered by creation time.
func (v transactionView) ListSites() []Site { return v.state.sortedSites() }

// ListDesigns returns all design records ordered by creation time.
func (v transactionView) ListDesigns() []DesignRecord { return v.state.sortedDesigns() }

// FindPlant retrieves a plant by ID from the snapshot.
func (v transactionView) FindPlant(id string) (Plant, bool) {
	p, ok := v.state.plants[id]
	if !ok {
		return Plant{}, false
	}
	return clonePlant(p), true
}

// FindSite retrieves a site by ID from the snapshot.
func (v transactionView) FindSite(id string) (Site, bool) {
	site, ok := v.state.sites[id]
	if !ok {
		return Site{}, false
	}
	return cloneSite(site), true
}

// FindDesign retrieves a design record by ID from the snapshot.
func (v transactionView) FindDesign(id string) (DesignRecord, bool) {
	d, ok := v.state.designs[id]
	if !ok {
		return DesignRecord{}, false
	}
	return cloneDesign(d), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindPlant exposes plant lookup within the transaction scope.
func (tx *transaction) FindPlant(id string) (Plant, bool) {
	return transactionView{state: &tx.state}.FindPlant(id)
}

// FindSite exposes site lookup within the transaction scope.
func (tx *transaction) FindSite(id string) (Site, bool) {
	return transactionView{state: &tx.state}.FindSite(id)
}

// CreatePlant appends a plant to the catalog.
func (tx *transaction) CreatePlant(p Plant) (Plant, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.plants[p.ID]; exists {
		return Plant{}, fmt.Errorf("plant %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.plants[p.ID] = clonePlant(p)
	tx.state.plantOrder = append(tx.state.plantOrder, p.ID)
	tx.recordChange(Change{Entity: domain.EntityPlant, Action: domain.ActionCreate, After: clonePlant(p)})
	return clonePlant(p), nil
}

// UpdatePlant mutates a plant in place; its catalog position is kept.
func (tx *transaction) UpdatePlant(id string, mutator func(*Plant) error) (Plant, error) {
	current, ok := tx.state.plants[id]
	if !ok {
		return Plant{}, fmt.Errorf("plant %q not found", id)
	}
	before := clonePlant(current)
	if err := mutator(&current); err != nil {
		return Plant{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.plants[id] = clonePlant(current)
	tx.recordChange(Change{Entity: domain.EntityPlant, Action: domain.ActionUpdate, Before: before, After: clonePlant(current)})
	return clonePlant(current), nil
}

// DeletePlant removes a plant from the catalog.
func (tx *transaction) DeletePlant(id string) error {
	current, ok := tx.state.plants[id]
	if !ok {
		return fmt.Errorf("plant %q not found", id)
	}
	delete(tx.state.plants, id)
	order := tx.state.plantOrder[:0:0]
	for _, existing := range tx.state.plantOrder {
		if existing != id {
			order = append(order, existing)
		}
	}
	tx.state.plantOrder = order
	tx.recordChange(Change{Entity: domain.EntityPlant, Action: domain.ActionDelete, Before: clonePlant(current)})
	return nil
}

// CreateSite stores a new site.
func (tx *transaction) CreateSite(site Site) (Site, error) {
	if site.ID == "" {
		site.ID = tx.store.newID()
	}
	if _, exists := tx.state.sites[site.ID]; exists {
		return Site{}, fmt.Errorf("site %q already exists", site.ID)
	}
	site.CreatedAt = tx.now
	site.UpdatedAt = tx.now
	tx.state.sites[site.ID] = cloneSite(site)
	tx.recordChange(Change{Entity: domain.EntitySite, Action: domain.ActionCreate, After: cloneSite(site)})
	return cloneSite(site), nil
}

// UpdateSite mutates a site using the provided mutator function.
func (tx *transaction) UpdateSite(id string, mutator func(*Site) error) (Site, error) {
	current, ok := tx.state.sites[id]
	if !ok {
		return Site{}, fmt.Errorf("site %q not found", id)
	}
	before := cloneSite(current)
	if err := mutator(&current); err != nil {
		return Site{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.sites[id] = cloneSite(current)
	tx.recordChange(Change{Entity: domain.EntitySite, Action: domain.ActionUpdate, Before: before, After: cloneSite(current)})
	return cloneSite(current), nil
}

// DeleteSite removes a site that no stored design refers to.
func (tx *transaction) DeleteSite(id string) error {
	current, ok := tx.state.sites[id]
	if !ok {
		return fmt.Errorf("site %q not found", id)
	}
	for _, design := range tx.state.designs {
		if design.SiteID == id {
			return fmt.Errorf("%w: site %q referenced by design %q", domain.ErrSiteInUse, id, design.ID)
		}
	}
	delete(tx.state.sites, id)
	tx.recordChange(Change{Entity: domain.EntitySite, Action: domain.ActionDelete, Before: cloneSite(current)})
	return nil
}

// CreateDesign stores a generated design. A non-empty SiteID must resolve.
func (tx *transaction) CreateDesign(r DesignRecord) (DesignRecord, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.designs[r.ID]; exists {
		return DesignRecord{}, fmt.Errorf("design %q already exists", r.ID)
	}
	if r.SiteID != "" {
		if _, ok := tx.state.sites[r.SiteID]; !ok {
			return DesignRecord{}, fmt.Errorf("site %q not found for design", r.SiteID)
		}
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.designs[r.ID] = cloneDesign(r)
	tx.recordChange(Change{Entity: domain.EntityDesign, Action: domain.ActionCreate, After: cloneDesign(r)})
	return cloneDesign(r), nil
}

// DeleteDesign removes a stored design.
func (tx *transaction) DeleteDesign(id string) error {
	current, ok := tx.state.designs[id]
	if !ok {
		return fmt.Errorf("design %q not found", id)
	}
	delete(tx.state.designs, id)
	tx.recordChange(Change{Entity: domain.EntityDesign, Action: domain.ActionDelete, Before: cloneDesign(current)})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetPlant retrieves a plant by ID from committed state.
func (s *Store) GetPlant(id string) (Plant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.FindPlant(id)
}

// ListPlants returns the committed catalog in insertion order.
func (s *Store) ListPlants() []Plant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.orderedPlants()
}

// GetSite retrieves a site by ID from committed state.
func (s *Store) GetSite(id string) (Site, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.FindSite(id)
}

// ListSites returns committed sites ordered by creation time.
func (s *Store) ListSites() []Site {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.sortedSites()
}

// GetDesign retrieves a design record by ID from committed state.
func (s *Store) GetDesign(id string) (DesignRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.FindDesign(id)
}

// ListDesigns returns committed design records ordered by creation time.
func (s *Store) ListDesigns() []DesignRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.sortedDesigns()
}
