// Package repair attempts deterministic recovery from validation errors:
// checksum correction, numeric and currency coercion, secondary-currency
// derivation, and classification suggestion. Repairs that cannot be performed
// deterministically are surfaced back to the caller, never guessed.
package repair

import (
	"log/slog"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/schema"
	"github.com/c360studio/metacast/validate"
)

// Attempt records one attempted repair with before and after values for
// auditability.
type Attempt struct {
	Field   string `json:"field"`
	Repair  string `json:"repair"`
	Before  string `json:"before"`
	After   string `json:"after,omitempty"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// Outcome is the result of one recovery pass.
type Outcome struct {
	// Attempts lists every repair tried, applied or not.
	Attempts []Attempt `json:"attempts,omitempty"`

	// Remaining are the errors no deterministic repair could resolve. They
	// are returned for caller escalation.
	Remaining []validate.Error `json:"remaining,omitempty"`
}

// Repair is one named deterministic repair strategy.
type Repair interface {
	// Name identifies the repair in audit logs.
	Name() string

	// Matches reports whether this repair applies to the error.
	Matches(err validate.Error, f schema.Field) bool

	// Apply attempts the repair. It returns the new value and true when the
	// repair succeeded deterministically, or a reason and false otherwise.
	// Apply must not write the record; the manager does.
	Apply(rec *record.Record, err validate.Error, env *Env) (newValue string, ok bool, reason string)
}

// Env gives repairs read access to configuration (conversion tables, keyword
// tables) for the item being repaired.
type Env struct {
	Resolver *config.Resolver
	Context  config.Context
}

// Manager runs at most one repair per validation error.
type Manager struct {
	schema  *schema.Schema
	repairs []Repair
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRepairs replaces the default repair set.
func WithRepairs(repairs ...Repair) ManagerOption {
	return func(m *Manager) {
		m.repairs = repairs
	}
}

// NewManager creates a manager with the default repair set: check-digit
// correction, numeric coercion, currency normalization, secondary-currency
// derivation, and classification suggestion.
func NewManager(s *schema.Schema, opts ...ManagerOption) *Manager {
	m := &Manager{
		schema: s,
		repairs: []Repair{
			&checkDigitRepair{},
			&numericCoercionRepair{},
			&currencyNormalizationRepair{},
			&currencyDerivationRepair{},
			&classificationSuggestionRepair{},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recover attempts exactly one repair per validation error, mutating rec for
// applied repairs. Unrepairable errors come back in Outcome.Remaining.
func (m *Manager) Recover(rec *record.Record, result *validate.Result, env *Env) (*Outcome, error) {
	out := &Outcome{}

	for _, verr := range result.Errors {
		f, _ := m.schema.Lookup(verr.Field)

		repair := m.match(verr, f)
		if repair == nil {
			out.Remaining = append(out.Remaining, verr)
			continue
		}

		before := rec.Value(verr.Field)
		newValue, ok, reason := repair.Apply(rec, verr, env)
		attempt := Attempt{
			Field:  verr.Field,
			Repair: repair.Name(),
			Before: before,
			After:  newValue,
			Reason: reason,
		}

		if !ok {
			out.Attempts = append(out.Attempts, attempt)
			out.Remaining = append(out.Remaining, verr)
			m.logger.Debug("Repair not applicable",
				"field", verr.Field,
				"repair", repair.Name(),
				"reason", reason)
			continue
		}

		prov := record.Provenance{
			Strategy: "repair:" + repair.Name(),
			Origin:   record.OriginRepair,
			Source:   repair.Name(),
		}
		if err := rec.Set(verr.Field, newValue, prov); err != nil {
			return nil, err
		}
		attempt.Applied = true
		out.Attempts = append(out.Attempts, attempt)

		m.logger.Info("Repair applied",
			"field", verr.Field,
			"repair", repair.Name(),
			"before", before,
			"after", newValue)
	}

	return out, nil
}

// match returns the first repair matching the error. Each error gets at most
// one repair attempt.
func (m *Manager) match(err validate.Error, f schema.Field) Repair {
	for _, r := range m.repairs {
		if r.Matches(err, f) {
			return r
		}
	}
	return nil
}
