package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gardencore/internal/events"
	"gardencore/internal/infra/persistence/memory"
	"gardencore/internal/planner"
)

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	clock     Clock
	publisher events.Publisher
	design    planner.Options
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		audit:     noopAudit{},
		clock:     ClockFunc(nil),
		publisher: events.NopPublisher{},
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder records per-operation outcomes.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer opens a span around every operation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithAuditRecorder receives an entry for every mutating operation.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithClock overrides the time source used for audit timestamps and durations.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithEventPublisher emits design.generated events after each committed design.
func WithEventPublisher(publisher events.Publisher) ServiceOption {
	return func(o *serviceOptions) {
		if publisher != nil {
			o.publisher = publisher
		}
	}
}

// WithDesignDefaults sets the generation options applied when a request leaves
// a value unspecified.
func WithDesignDefaults(opts planner.Options) ServiceOption {
	return func(o *serviceOptions) { o.design = opts }
}

// Service exposes transactional catalog, site and design operations.
type Service struct {
	store     PersistentStore
	engine    *RulesEngine
	mu        sync.RWMutex
	plugins   map[string]PluginMetadata
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	clock     Clock
	publisher events.Publisher
	design    planner.Options
}

type engineProvider interface {
	RulesEngine() *RulesEngine
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	svc := &Service{
		store:     store,
		plugins:   make(map[string]PluginMetadata),
		logger:    options.logger,
		metrics:   options.metrics,
		tracer:    options.tracer,
		audit:     options.audit,
		clock:     options.clock,
		publisher: options.publisher,
		design:    options.design,
	}
	if p, ok := store.(engineProvider); ok {
		svc.engine = p.RulesEngine()
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// ErrNotFound is returned when a referenced entity does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

type auditMeta struct {
	entity EntityType
	action Action
}

var auditOperations = map[string]auditMeta{
	"create_plant":    {EntityPlant, ActionCreate},
	"update_plant":    {EntityPlant, ActionUpdate},
	"delete_plant":    {EntityPlant, ActionDelete},
	"import_catalog":  {EntityPlant, ActionCreate},
	"create_site":     {EntitySite, ActionCreate},
	"update_site":     {EntitySite, ActionUpdate},
	"delete_site":     {EntitySite, ActionDelete},
	"generate_design": {EntityDesign, ActionCreate},
	"delete_design":   {EntityDesign, ActionDelete},
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, Result, error)) (Result, error) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	id, res, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	for _, v := range res.Violations {
		s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", v.Severity, "message", v.Message)
	}
	if err != nil {
		s.recordAuditError(ctx, op, id, duration, err)
		s.logger.Error("operation failed", "operation", op, "id", id, "error", err)
		return res, err
	}
	s.recordAuditSuccess(ctx, op, id, duration)
	s.logger.Debug("operation completed", "operation", op, "id", id, "duration", duration)
	return res, nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, id string, duration time.Duration) {
	s.recordAudit(ctx, op, id, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, id string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, id, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op, id string, duration time.Duration, err error) {
	meta, ok := auditOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// CreatePlant appends a plant to the catalog.
func (s *Service) CreatePlant(ctx context.Context, plant Plant) (Plant, Result, error) {
	var created Plant
	res, err := s.run(ctx, "create_plant", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreatePlant(plant)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdatePlant mutates a plant using the provided mutator.
func (s *Service) UpdatePlant(ctx context.Context, id string, mutator func(*Plant) error) (Plant, Result, error) {
	var updated Plant
	res, err := s.run(ctx, "update_plant", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.FindPlant(id); !ok {
				return ErrNotFound{Entity: EntityPlant, ID: id}
			}
			var err error
			updated, err = tx.UpdatePlant(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

// DeletePlant removes a plant from the catalog.
func (s *Service) DeletePlant(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_plant", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.FindPlant(id); !ok {
				return ErrNotFound{Entity: EntityPlant, ID: id}
			}
			return tx.DeletePlant(id)
		})
		return id, res, err
	})
}

// ImportCatalog appends plants in order within a single transaction; one
// blocking violation rejects the whole batch.
func (s *Service) ImportCatalog(ctx context.Context, plants []Plant) ([]Plant, Result, error) {
	var created []Plant
	res, err := s.run(ctx, "import_catalog", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created = make([]Plant, 0, len(plants))
			for _, p := range plants {
				c, err := tx.CreatePlant(p)
				if err != nil {
					return err
				}
				created = append(created, c)
			}
			return nil
		})
		return "", res, err
	})
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}

// ListPlants returns the catalog in insertion order.
func (s *Service) ListPlants(ctx context.Context) []Plant {
	var out []Plant
	_, _ = s.run(ctx, "list_plants", func(context.Context) (string, Result, error) {
		out = s.store.ListPlants()
		return "", Result{}, nil
	})
	return out
}

// CreateSite persists a new site.
func (s *Service) CreateSite(ctx context.Context, site Site) (Site, Result, error) {
	var created Site
	res, err := s.run(ctx, "create_site", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateSite(site)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdateSite mutates a site using the provided mutator.
func (s *Service) UpdateSite(ctx context.Context, id string, mutator func(*Site) error) (Site, Result, error) {
	var updated Site
	res, err := s.run(ctx, "update_site", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.FindSite(id); !ok {
				return ErrNotFound{Entity: EntitySite, ID: id}
			}
			var err error
			updated, err = tx.UpdateSite(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteSite removes a site that no design refers to.
func (s *Service) DeleteSite(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_site", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.FindSite(id); !ok {
				return ErrNotFound{Entity: EntitySite, ID: id}
			}
			return tx.DeleteSite(id)
		})
		return id, res, err
	})
}

// GetSite fetches a site by ID.
func (s *Service) GetSite(ctx context.Context, id string) (Site, error) {
	var site Site
	_, err := s.run(ctx, "get_site", func(context.Context) (string, Result, error) {
		var ok bool
		site, ok = s.store.GetSite(id)
		if !ok {
			return id, Result{}, ErrNotFound{Entity: EntitySite, ID: id}
		}
		return id, Result{}, nil
	})
	return site, err
}

// ListSites returns sites ordered by creation time.
func (s *Service) ListSites(ctx context.Context) []Site {
	var out []Site
	_, _ = s.run(ctx, "list_sites", func(context.Context) (string, Result, error) {
		out = s.store.ListSites()
		return "", Result{}, nil
	})
	return out
}

// ResolveDesignOptions merges request options over the service defaults and
// validates the result.
func (s *Service) ResolveDesignOptions(req DesignOptions) (planner.Options, error) {
	opts := s.design
	opts.Region = append([]string(nil), s.design.Region...)
	if req.PlantsPerZone != 0 {
		opts.PlantsPerZone = req.PlantsPerZone
	}
	if req.DiversityFactor != nil {
		d := *req.DiversityFactor
		opts.DiversityFactor = &d
	}
	return opts.Resolve()
}

// GenerateDesign runs the design engine for a stored site against the current
// catalog and persists the result. An empty catalog yields planner.ErrNoDesign.
func (s *Service) GenerateDesign(ctx context.Context, siteID string, req DesignOptions) (DesignRecord, Result, error) {
	var created DesignRecord
	res, err := s.run(ctx, "generate_design", func(ctx context.Context) (string, Result, error) {
		opts, err := s.ResolveDesignOptions(req)
		if err != nil {
			return siteID, Result{}, err
		}
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			site, ok := tx.FindSite(siteID)
			if !ok {
				return ErrNotFound{Entity: EntitySite, ID: siteID}
			}
			design, err := planner.Generate(site, tx.Snapshot().ListPlants(), opts)
			if err != nil {
				return err
			}
			created, err = tx.CreateDesign(DesignRecord{SiteID: siteID, Options: opts.DesignOptions, Design: design})
			return err
		})
		return created.ID, res, err
	})
	if err != nil {
		return DesignRecord{}, res, err
	}
	s.publishGenerated(ctx, created)
	return created, res, nil
}

func (s *Service) publishGenerated(ctx context.Context, rec DesignRecord) {
	evt, err := events.New(events.TypeDesignGenerated, rec.SiteID, rec.CreatedAt, events.DesignGenerated{
		DesignID:    rec.ID,
		SiteID:      rec.SiteID,
		SiteName:    rec.Design.Site.Name,
		Zones:       len(rec.Design.Zones),
		TotalPlants: rec.Design.Statistics.TotalPlants,
		NativePct:   rec.Design.Statistics.NativePercentage,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn("publish design event failed", "design_id", rec.ID, "error", err)
	}
}

// GetDesign fetches a stored design record.
func (s *Service) GetDesign(ctx context.Context, id string) (DesignRecord, error) {
	var rec DesignRecord
	_, err := s.run(ctx, "get_design", func(context.Context) (string, Result, error) {
		var ok bool
		rec, ok = s.store.GetDesign(id)
		if !ok {
			return id, Result{}, ErrNotFound{Entity: EntityDesign, ID: id}
		}
		return id, Result{}, nil
	})
	return rec, err
}

// ListDesigns returns stored designs ordered by creation time.
func (s *Service) ListDesigns(ctx context.Context) []DesignRecord {
	var out []DesignRecord
	_, _ = s.run(ctx, "list_designs", func(context.Context) (string, Result, error) {
		out = s.store.ListDesigns()
		return "", Result{}, nil
	})
	return out
}

// DeleteDesign removes a stored design.
func (s *Service) DeleteDesign(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_design", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.Snapshot().FindDesign(id); !ok {
				return ErrNotFound{Entity: EntityDesign, ID: id}
			}
			return tx.DeleteDesign(id)
		})
		return id, res, err
	})
}

// InstallPlugin registers a plugin, wiring its rules into the active engine.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, errors.New("plugin cannot be nil")
	}
	if s.engine == nil {
		return PluginMetadata{}, errors.New("store does not expose a rules engine")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, fmt.Errorf("register plugin %s: %w", plugin.Name(), err)
	}

	meta := PluginMetadata{
		Name:    plugin.Name(),
		Version: plugin.Version(),
		Schemas: registry.Schemas(),
	}
	for _, rule := range registry.Rules() {
		s.engine.Register(rule)
		meta.Rules = append(meta.Rules, rule.Name())
	}
	s.plugins[plugin.Name()] = meta
	s.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version, "rules", len(meta.Rules))
	return meta, nil
}

// RegisteredPlugins returns installed plugins ordered by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sortPlugins(out)
	return out
}
