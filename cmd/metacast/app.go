package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/c360studio/metacast/completion"
	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/engine"
	"github.com/c360studio/metacast/repair"
	"github.com/c360studio/metacast/schema"
	"github.com/c360studio/metacast/strategy"
	"github.com/c360studio/metacast/validate"
)

// appOptions are the persistent flags shared by every subcommand.
type appOptions struct {
	configRoot string
	logLevel   string
}

// app is the wired application: settings, configuration store, and the
// resolution pipeline.
type app struct {
	settings *config.Config
	store    *config.Store
	resolver *config.Resolver
	pipeline *engine.Pipeline
	logger   *slog.Logger
}

// buildApp loads settings, sets up logging, and wires the full stack. The
// configuration store loads once here; batch commands snapshot it before
// running.
func buildApp(opts *appOptions) (*app, error) {
	settings, err := config.NewLoader(nil).Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if opts.configRoot != "" {
		settings.Hierarchy.Root = opts.configRoot
	}
	if opts.logLevel != "" {
		settings.Log.Level = opts.logLevel
	}

	logger := newLogger(settings.Log.Level)
	slog.SetDefault(logger)

	store, err := config.NewStore(settings.Hierarchy.Root, config.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if settings.Hierarchy.Watch {
		if err := store.Watch(); err != nil {
			logger.Warn("Config watch unavailable", "error", err)
		}
	}

	resolver := config.NewResolver(store,
		config.WithResolverLogger(logger),
		config.WithValidators(defaultValidators()))

	completer := completion.NewClient(settings.Completion.Endpoint,
		completion.WithLogger(logger),
		completion.WithRetryConfig(completion.RetryConfig{
			MaxAttempts:       settings.Completion.MaxAttempts,
			BackoffBase:       settings.Completion.BackoffBase,
			BackoffMultiplier: 2.0,
			MaxBackoff:        settings.Completion.Timeout,
		}))

	sch := schema.Distribution()
	eng := engine.New(sch, strategy.DistributionRegistry(), resolver,
		engine.WithCompleter(completer),
		engine.WithLogger(logger))

	pipeline := engine.NewPipeline(eng,
		validate.NewValidator(),
		repair.NewManager(sch, repair.WithLogger(logger)),
		logger)

	return &app{
		settings: settings,
		store:    store,
		resolver: resolver,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// snapshotPipeline rebuilds the pipeline over a snapshot of the store, for
// batch runs that must not observe reloads mid-run.
func (a *app) snapshotPipeline() *engine.Pipeline {
	resolver := config.NewResolver(a.store.Snapshot(),
		config.WithResolverLogger(a.logger),
		config.WithValidators(defaultValidators()))

	eng := engine.New(a.pipeline.Engine().Schema(), a.pipeline.Engine().Registry(), resolver,
		engine.WithCompleter(completion.NewClient(a.settings.Completion.Endpoint,
			completion.WithLogger(a.logger))),
		engine.WithLogger(a.logger))

	sch := a.pipeline.Engine().Schema()
	return engine.NewPipeline(eng,
		validate.NewValidator(),
		repair.NewManager(sch, repair.WithLogger(a.logger)),
		a.logger)
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// defaultValidators guards configuration writes for the keys with known
// shapes.
func defaultValidators() *config.ValidatorRegistry {
	v := config.NewValidatorRegistry()
	v.Register("us_discount", config.IntRange(0, 90))
	v.Register("carton_qty", config.IntRange(1, 500))
	v.Register("binding", config.OneOf(schema.BindingValues...))
	v.Register("returnable", config.OneOf(schema.ReturnableValues...))
	v.Register("language_code", config.OneOf(schema.LanguageValues...))
	v.Register("cad_conversion_rate", config.PositiveDecimal())
	v.Register("weight_per_page_lb", config.PositiveDecimal())
	return v
}

// parseOverrides turns repeated key=value flags into a field-override map.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("override %q must be key=value", p)
		}
		overrides[k] = v
	}
	return overrides, nil
}
