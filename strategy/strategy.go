// Package strategy defines the field-computation strategies that populate
// distribution-record fields, and the registry binding output fields to them.
// Strategies are a closed tagged variant dispatched by a single Execute
// function; new strategy kinds are added as new variants.
package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/record"
)

// Kind tags a strategy variant.
type Kind string

const (
	// KindDirect copies a source field verbatim.
	KindDirect Kind = "direct"
	// KindComputed derives a value with a pure function.
	KindComputed Kind = "computed"
	// KindDefault returns a configured literal.
	KindDefault Kind = "default"
	// KindConditional dispatches to one of two nested strategies.
	KindConditional Kind = "conditional"
	// KindDate searches candidate fields for a parseable date.
	KindDate Kind = "date"
	// KindCompletion delegates to the external completion service.
	KindCompletion Kind = "completion"
)

// ComputeFunc derives a value from the record and resolved configuration. It
// must not mutate the record.
type ComputeFunc func(env *Env) (string, error)

// PredicateFunc evaluates a condition over the record and context.
type PredicateFunc func(env *Env) bool

// Completer is the external completion collaborator as strategies see it.
type Completer interface {
	// Complete requests a best-effort value for promptKey given the context
	// fields. It returns the raw completion value or an error after retries
	// are exhausted.
	Complete(ctx context.Context, promptKey string, contextFields map[string]string) (string, error)
}

// Strategy is one field-computation rule. Exactly one variant's payload is
// meaningful, selected by Kind. A bound strategy is immutable for the
// duration of a resolution pass.
type Strategy struct {
	Kind Kind

	// Direct
	SourceField string

	// Computed
	ComputeName string
	Compute     ComputeFunc

	// Default: the literal is itself resolved through the configuration
	// hierarchy under ConfigKey, so defaults can be overridden per level.
	ConfigKey string
	Literal   string

	// Conditional
	PredicateName string
	Predicate     PredicateFunc
	Then          *Strategy
	Else          *Strategy

	// Date
	CandidateFields []string
	OffsetDays      int
	FallbackToNow   bool

	// Completion
	PromptKey string
	// FallbackTemplate is interpolated from the record ({field} placeholders)
	// when the completion service fails. Empty means use the generic
	// placeholder.
	FallbackTemplate string
}

// Direct returns a strategy copying sourceField verbatim.
func Direct(sourceField string) *Strategy {
	return &Strategy{Kind: KindDirect, SourceField: sourceField}
}

// Computed returns a strategy deriving a value with fn. The name identifies
// the computation in provenance and reports.
func Computed(name string, fn ComputeFunc) *Strategy {
	return &Strategy{Kind: KindComputed, ComputeName: name, Compute: fn}
}

// Default returns a strategy resolving configKey through the configuration
// hierarchy, falling back to literal.
func Default(configKey, literal string) *Strategy {
	return &Strategy{Kind: KindDefault, ConfigKey: configKey, Literal: literal}
}

// Conditional returns a strategy dispatching to then or else based on pred.
func Conditional(name string, pred PredicateFunc, then, els *Strategy) *Strategy {
	return &Strategy{Kind: KindConditional, PredicateName: name, Predicate: pred, Then: then, Else: els}
}

// DateComputation returns a strategy searching candidateFields in priority
// order for a parseable date, adding offsetDays, and emitting YYYY-MM-DD.
func DateComputation(candidateFields []string, offsetDays int, fallbackToNow bool) *Strategy {
	return &Strategy{
		Kind:            KindDate,
		CandidateFields: candidateFields,
		OffsetDays:      offsetDays,
		FallbackToNow:   fallbackToNow,
	}
}

// Completion returns a strategy delegating to the completion service under
// promptKey, with fallbackTemplate substituted on failure.
func Completion(promptKey, fallbackTemplate string) *Strategy {
	return &Strategy{Kind: KindCompletion, PromptKey: promptKey, FallbackTemplate: fallbackTemplate}
}

// Name returns the strategy's display name for provenance and reports.
func (s *Strategy) Name() string {
	switch s.Kind {
	case KindComputed:
		return string(s.Kind) + ":" + s.ComputeName
	case KindConditional:
		return string(s.Kind) + ":" + s.PredicateName
	case KindCompletion:
		return string(s.Kind) + ":" + s.PromptKey
	case KindDirect:
		return string(s.Kind) + ":" + s.SourceField
	case KindDefault:
		return string(s.Kind) + ":" + s.ConfigKey
	default:
		return string(s.Kind)
	}
}

// Env carries everything a strategy execution may consult: the item record,
// the configuration resolver and context, the completion collaborator, and
// the clock. Strategies read from the env; only the engine writes the record.
type Env struct {
	Record    *record.Record
	Resolver  *config.Resolver
	Context   config.Context
	Accessors record.AccessorMap
	Completer Completer
	Logger    *slog.Logger
	Now       func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
