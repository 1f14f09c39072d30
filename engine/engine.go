// Package engine orchestrates field resolution: for every field of the output
// schema, in schema order, it executes the bound strategy against the item
// record and configuration hierarchy, isolating per-field failures.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/schema"
	"github.com/c360studio/metacast/strategy"
)

// WarningKind classifies a resolution warning.
type WarningKind string

const (
	// WarnNoStrategy means no strategy is bound to the field.
	WarnNoStrategy WarningKind = "no_strategy"
	// WarnResolutionError means the strategy failed internally.
	WarnResolutionError WarningKind = "resolution_error"
	// WarnEmptyResult means the strategy completed with nothing to write.
	WarnEmptyResult WarningKind = "empty_result"
	// WarnCompletionFallback means a completion failure was papered over
	// with a fallback value.
	WarnCompletionFallback WarningKind = "completion_fallback"
)

// Warning is one non-fatal issue raised during a resolution pass.
type Warning struct {
	Field   string      `json:"field"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Resolution is the result of one pass over one item record.
type Resolution struct {
	// Record is the resolved record. The engine is the only mutator during
	// resolution.
	Record *record.Record `json:"-"`

	// Warnings lists per-field issues. A warning never aborts the pass.
	Warnings []Warning `json:"warnings,omitempty"`

	// Populated counts fields that ended the pass with a non-empty value,
	// matching the report's completeness accounting.
	Populated int `json:"populated"`

	// Duration is the wall time of the pass.
	Duration time.Duration `json:"duration"`
}

// Engine resolves every field of an output schema using a strategy registry,
// a configuration resolver, and an optional completion collaborator.
type Engine struct {
	schema    *schema.Schema
	registry  *strategy.Registry
	resolver  *config.Resolver
	completer strategy.Completer
	accessors record.AccessorMap
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompleter sets the completion collaborator. Without one, completion
// strategies go straight to their fallbacks.
func WithCompleter(c strategy.Completer) Option {
	return func(e *Engine) {
		e.completer = c
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the clock used by date strategies. Tests pin this.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine for the given schema, registry, and resolver.
func New(s *schema.Schema, reg *strategy.Registry, res *config.Resolver, opts ...Option) *Engine {
	e := &Engine{
		schema:    s,
		registry:  reg,
		resolver:  res,
		accessors: record.NewAccessorMap(s.FieldNames()),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the engine's output schema.
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// Registry returns the engine's strategy registry.
func (e *Engine) Registry() *strategy.Registry {
	return e.registry
}

// Resolve runs one resolution pass over rec. Fields are processed in schema
// declaration order. Every failure is isolated to its field: the strategy's
// outcome is recorded as a warning and the field is left empty. Given the
// same record and configuration snapshot, two passes produce identical output
// for every non-completion field.
func (e *Engine) Resolve(ctx context.Context, rec *record.Record, cfgCtx config.Context) (*Resolution, error) {
	started := time.Now()
	res := &Resolution{Record: rec}

	env := &strategy.Env{
		Record:    rec,
		Resolver:  e.resolver,
		Context:   cfgCtx,
		Accessors: e.accessors,
		Completer: e.completer,
		Logger:    e.logger,
		Now:       e.now,
	}

	for _, field := range e.schema.Fields() {
		if err := ctx.Err(); err != nil {
			// Cancellation is at item granularity: the partial record is
			// abandoned wholesale.
			return nil, err
		}

		strat, ok := e.registry.Lookup(field.Name)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{
				Field:   field.Name,
				Kind:    WarnNoStrategy,
				Message: "no strategy bound",
			})
			e.logger.Debug("No strategy bound", "field", field.Name)
			continue
		}

		out := strategy.Execute(ctx, strat, env)
		switch out.Status {
		case strategy.StatusValue:
			prov := record.Provenance{
				Strategy:      strat.Name(),
				Origin:        out.Origin,
				Source:        out.Source,
				RawCompletion: out.RawCompletion,
			}
			if err := e.accessors.For(field.Name).Set(rec, out.Value, prov); err != nil {
				return nil, err
			}
			// Empty strings are written for provenance but counted the way
			// the report counts them: as empty fields.
			if out.Value != "" {
				res.Populated++
			}
			if out.Warning != "" {
				res.Warnings = append(res.Warnings, Warning{
					Field:   field.Name,
					Kind:    WarnCompletionFallback,
					Message: out.Warning,
				})
			}

		case strategy.StatusEmpty:
			if out.Warning != "" {
				res.Warnings = append(res.Warnings, Warning{
					Field:   field.Name,
					Kind:    WarnEmptyResult,
					Message: out.Warning,
				})
			}

		case strategy.StatusError:
			res.Warnings = append(res.Warnings, Warning{
				Field:   field.Name,
				Kind:    WarnResolutionError,
				Message: out.Err.Error(),
			})
			e.logger.Warn("Strategy failed, field left empty",
				"field", field.Name,
				"strategy", strat.Name(),
				"error", out.Err)
		}
	}

	res.Duration = time.Since(started)
	e.logger.Debug("Resolution pass complete",
		"fields", e.schema.Len(),
		"populated", res.Populated,
		"warnings", len(res.Warnings),
		"duration", res.Duration)
	return res, nil
}

// Row returns the resolved values in schema declaration order, one entry per
// output field, empty string for unpopulated fields.
func (e *Engine) Row(rec *record.Record) []string {
	row := make([]string, 0, e.schema.Len())
	for _, f := range e.schema.Fields() {
		row = append(row, rec.Value(f.Name))
	}
	return row
}
