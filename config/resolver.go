package config

import (
	"fmt"
	"log/slog"

	"dario.cat/mergo"
)

// Resolver answers configuration lookups against a Store with five-level
// precedence: field override, then item, group, publisher, global. The first
// level that defines a key wins; a defined-but-empty value stops fall-through.
type Resolver struct {
	store      *Store
	validators *ValidatorRegistry
	logger     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithValidators sets the write-validator registry.
func WithValidators(v *ValidatorRegistry) ResolverOption {
	return func(r *Resolver) {
		r.validators = v
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:      store,
		validators: NewValidatorRegistry(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Resolver) Store() *Store {
	return r.store
}

// Get returns the value for key from the highest-priority level that defines
// it, with an Entry describing the origin. If no level defines the key, the
// caller-supplied default is returned with found=false and no error. Lookup
// errors (a corrupt entity file) are returned as-is so the caller can abort
// that item.
func (r *Resolver) Get(key string, ctx Context, def any) (any, Entry, bool, error) {
	if ctx.FieldOverrides != nil {
		if v, ok := ctx.FieldOverrides[key]; ok {
			return v, Entry{
				Key:         key,
				Value:       v,
				Level:       LevelFieldOverride,
				Source:      "caller",
				Description: "caller-supplied override",
			}, true, nil
		}
	}

	for _, probe := range r.fileLevels(ctx) {
		lm, err := probe.load()
		if err != nil {
			return def, Entry{}, false, err
		}
		if lm.Defines(key) {
			return lm.values[key], Entry{
				Key:          key,
				Value:        lm.values[key],
				Level:        probe.level,
				Source:       lm.path,
				Description:  probe.describe,
				LastModified: lm.modTime,
			}, true, nil
		}
	}

	return def, Entry{Key: key, Value: def, Source: "default", Description: "caller-supplied default"}, false, nil
}

// GetString is Get with the value coerced to its string form.
func (r *Resolver) GetString(key string, ctx Context, def string) (string, Entry, bool, error) {
	v, entry, found, err := r.Get(key, ctx, def)
	if err != nil || !found {
		return def, entry, found, err
	}
	return Stringify(v), entry, true, nil
}

type levelProbe struct {
	level    Level
	describe string
	load     func() (*levelMap, error)
}

func (r *Resolver) fileLevels(ctx Context) []levelProbe {
	return []levelProbe{
		{LevelItem, fmt.Sprintf("item %s", ctx.ItemID), func() (*levelMap, error) { return r.store.Item(ctx.ItemID) }},
		{LevelGroup, fmt.Sprintf("group %s", ctx.GroupName), func() (*levelMap, error) { return r.store.Group(ctx.GroupName) }},
		{LevelPublisher, fmt.Sprintf("publisher %s", ctx.PublisherName), func() (*levelMap, error) { return r.store.Publisher(ctx.PublisherName) }},
		{LevelGlobal, "global defaults", func() (*levelMap, error) { return r.store.Global(), nil }},
	}
}

// Description is the Describe result: the winning entry plus every candidate
// across the five levels, for debugging and reports.
type Description struct {
	Key        string  `json:"key"`
	Winner     *Entry  `json:"winner,omitempty"`
	Candidates []Entry `json:"candidates"`
}

// Describe returns the winning entry for key together with the full candidate
// list across all levels at which the key is defined.
func (r *Resolver) Describe(key string, ctx Context) (Description, error) {
	desc := Description{Key: key}

	if ctx.FieldOverrides != nil {
		if v, ok := ctx.FieldOverrides[key]; ok {
			desc.Candidates = append(desc.Candidates, Entry{
				Key:         key,
				Value:       v,
				Level:       LevelFieldOverride,
				Source:      "caller",
				Description: "caller-supplied override",
			})
		}
	}

	for _, probe := range r.fileLevels(ctx) {
		lm, err := probe.load()
		if err != nil {
			return desc, err
		}
		if lm.Defines(key) {
			desc.Candidates = append(desc.Candidates, Entry{
				Key:          key,
				Value:        lm.values[key],
				Level:        probe.level,
				Source:       lm.path,
				Description:  probe.describe,
				LastModified: lm.modTime,
			})
		}
	}

	if len(desc.Candidates) > 0 {
		desc.Winner = &desc.Candidates[0]
	}
	return desc, nil
}

// Effective merges every level applying to ctx into one flat map, lowest
// priority first so higher levels overwrite. This is a debugging view only:
// resolution itself never merges, because merged maps lose the
// absence-versus-empty distinction.
func (r *Resolver) Effective(ctx Context) (map[string]any, error) {
	merged := make(map[string]any)

	probes := r.fileLevels(ctx)
	for i := len(probes) - 1; i >= 0; i-- {
		lm, err := probes[i].load()
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&merged, lm.values, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge %s: %w", probes[i].level, err)
		}
	}
	if ctx.FieldOverrides != nil {
		if err := mergo.Merge(&merged, ctx.FieldOverrides, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
	}
	return merged, nil
}

// TargetError reports a write aimed at an entity-scoped level when the
// context names no entity, so there is no file or cache slot to write into.
type TargetError struct {
	Level Level
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("cannot set at %s level: no %s named in the context", e.Level, e.Level)
}

// Set validates and writes a value at the given level, updating the in-memory
// cache and, when persist is true, the backing file. A validator rejection is
// returned as a ValidationError and nothing is stored. Writes to the
// publisher, group, or item level require the matching entity in ctx; a
// missing entity is a TargetError, never a dropped write.
func (r *Resolver) Set(key string, value any, level Level, ctx Context, persist bool) error {
	if err := r.validators.Check(key, value); err != nil {
		return err
	}

	var entity string
	switch level {
	case LevelItem:
		entity = ctx.ItemID
	case LevelGroup:
		entity = ctx.GroupName
	case LevelPublisher:
		entity = ctx.PublisherName
	case LevelGlobal:
		entity = ""
	case LevelFieldOverride:
		return fmt.Errorf("field overrides are caller-supplied, not stored")
	}
	if level != LevelGlobal && entity == "" {
		return &TargetError{Level: level}
	}

	if err := r.store.setValue(level, entity, key, value, persist); err != nil {
		return fmt.Errorf("set %s at %s: %w", key, level, err)
	}

	r.logger.Debug("Configuration updated",
		"key", key,
		"level", level.String(),
		"entity", entity,
		"persisted", persist)
	return nil
}

// Stringify renders a YAML scalar the way it would appear in a flat output
// row. Non-scalar values fall back to fmt formatting.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		// YAML integers may decode as floats depending on the source.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
