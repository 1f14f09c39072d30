package strategy

import (
	"context"
	"fmt"
	"regexp"

	"github.com/c360studio/metacast/record"
)

// Status classifies an execution outcome. Empty is an explicit result, not an
// error: callers branch on the status instead of catching anything.
type Status int

const (
	// StatusValue means the strategy produced a concrete value.
	StatusValue Status = iota
	// StatusEmpty means the strategy completed but has nothing to write.
	StatusEmpty
	// StatusError means the strategy failed internally.
	StatusError
)

// Outcome is the result of executing one strategy for one field.
type Outcome struct {
	Status Status

	// Value is the produced value when Status is StatusValue.
	Value string

	// Origin classifies where the value came from.
	Origin record.Origin

	// Source is the origin detail (config level, source field, prompt key).
	Source string

	// RawCompletion is the completion service's raw value before fallback
	// substitution, when the completion path was taken.
	RawCompletion string

	// Warning carries a non-fatal note (rejected date, missing candidate).
	Warning string

	// Err is set when Status is StatusError.
	Err error
}

func valueOutcome(value string, origin record.Origin, source string) Outcome {
	return Outcome{Status: StatusValue, Value: value, Origin: origin, Source: source}
}

func emptyOutcome(warning string) Outcome {
	return Outcome{Status: StatusEmpty, Warning: warning}
}

func errorOutcome(err error) Outcome {
	return Outcome{Status: StatusError, Err: err}
}

// Execute runs one strategy against the environment. It never mutates the
// record; the engine applies the outcome. A panic inside a computed function
// is caught and reported as an error outcome so one field cannot abort the
// item's resolution.
func Execute(ctx context.Context, s *Strategy, env *Env) (out Outcome) {
	if s == nil {
		return errorOutcome(fmt.Errorf("nil strategy"))
	}

	defer func() {
		if r := recover(); r != nil {
			out = errorOutcome(fmt.Errorf("strategy %s panicked: %v", s.Name(), r))
		}
	}()

	switch s.Kind {
	case KindDirect:
		return executeDirect(s, env)
	case KindComputed:
		return executeComputed(s, env)
	case KindDefault:
		return executeDefault(s, env)
	case KindConditional:
		return executeConditional(ctx, s, env)
	case KindDate:
		return executeDate(s, env)
	case KindCompletion:
		return executeCompletion(ctx, s, env)
	default:
		return errorOutcome(fmt.Errorf("unknown strategy kind %q", s.Kind))
	}
}

func executeDirect(s *Strategy, env *Env) Outcome {
	v, ok := env.Accessors.For(s.SourceField).Get(env.Record)
	if !ok {
		return emptyOutcome("")
	}
	return valueOutcome(v, record.OriginStrategy, s.SourceField)
}

func executeComputed(s *Strategy, env *Env) Outcome {
	if s.Compute == nil {
		return errorOutcome(fmt.Errorf("computed strategy %s has no function", s.ComputeName))
	}
	v, err := s.Compute(env)
	if err != nil {
		return errorOutcome(fmt.Errorf("compute %s: %w", s.ComputeName, err))
	}
	if v == "" {
		return emptyOutcome("")
	}
	return valueOutcome(v, record.OriginStrategy, s.ComputeName)
}

func executeDefault(s *Strategy, env *Env) Outcome {
	v, entry, found, err := env.Resolver.GetString(s.ConfigKey, env.Context, s.Literal)
	if err != nil {
		return errorOutcome(fmt.Errorf("resolve default %s: %w", s.ConfigKey, err))
	}
	source := "literal"
	if found {
		source = entry.Level.String()
	}
	return valueOutcome(v, record.OriginStrategy, source)
}

func executeConditional(ctx context.Context, s *Strategy, env *Env) Outcome {
	if s.Predicate == nil {
		return errorOutcome(fmt.Errorf("conditional strategy %s has no predicate", s.PredicateName))
	}
	if s.Predicate(env) {
		return Execute(ctx, s.Then, env)
	}
	return Execute(ctx, s.Else, env)
}

func executeCompletion(ctx context.Context, s *Strategy, env *Env) Outcome {
	if env.Completer == nil {
		return fallbackOutcome(s, env, "no completion service configured")
	}

	contextFields := make(map[string]string)
	for _, k := range env.Record.Keys() {
		contextFields[k] = env.Record.Value(k)
	}

	raw, err := env.Completer.Complete(ctx, s.PromptKey, contextFields)
	if err != nil {
		env.logger().Warn("Completion failed, using fallback",
			"prompt_key", s.PromptKey,
			"error", err)
		return fallbackOutcome(s, env, err.Error())
	}

	out := valueOutcome(raw, record.OriginCompletion, s.PromptKey)
	out.RawCompletion = raw
	return out
}

// fallbackOutcome substitutes the strategy's fallback template, or a generic
// placeholder, after a completion failure. The field is never left unresolved
// solely because the completion service failed.
func fallbackOutcome(s *Strategy, env *Env, reason string) Outcome {
	value := interpolate(s.FallbackTemplate, env.Record)
	if value == "" {
		value = genericPlaceholder(env.Record)
	}
	out := valueOutcome(value, record.OriginFallback, s.PromptKey)
	out.Warning = fmt.Sprintf("completion fallback: %s", reason)
	return out
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// interpolate replaces {field} placeholders with record values. Placeholders
// for absent fields become empty strings.
func interpolate(template string, r *record.Record) string {
	if template == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		field := m[1 : len(m)-1]
		return r.Value(field)
	})
}

func genericPlaceholder(r *record.Record) string {
	if title := r.Value("title"); title != "" {
		return fmt.Sprintf("Information for %s is forthcoming.", title)
	}
	return "Information forthcoming."
}
