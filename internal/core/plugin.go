package core

import "sort"

// Plugin contributes catalog rules and schema fragments to a service.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	rules   []Rule
	schemas map[string]map[string]any
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{schemas: make(map[string]map[string]any)}
}

// RegisterRule adds an in-transaction rule contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule Rule) {
	if rule == nil {
		return
	}
	r.rules = append(r.rules, rule)
}

// RegisterSchema stores a JSON Schema fragment for an entity type.
func (r *PluginRegistry) RegisterSchema(entity string, schema map[string]any) {
	if entity == "" || schema == nil {
		return
	}
	r.schemas[entity] = cloneSchema(schema)
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Schemas returns a copy of registered schema fragments keyed by entity type.
func (r *PluginRegistry) Schemas() map[string]map[string]any {
	out := make(map[string]map[string]any, len(r.schemas))
	for entity, schema := range r.schemas {
		out[entity] = cloneSchema(schema)
	}
	return out
}

func cloneSchema(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// PluginMetadata describes an installed plugin.
type PluginMetadata struct {
	Name    string                    `json:"name"`
	Version string                    `json:"version"`
	Rules   []string                  `json:"rules"`
	Schemas map[string]map[string]any `json:"schemas,omitempty"`
}

func sortPlugins(in []PluginMetadata) {
	sort.Slice(in, func(i, j int) bool { return in[i].Name < in[j].Name })
}
