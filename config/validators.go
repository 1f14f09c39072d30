package config

import (
	"fmt"
	"strconv"
	"sync"
)

// ValidationError reports a rejected configuration write. The value is not
// stored when validation fails.
type ValidationError struct {
	Key     string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Key, e.Message)
}

// ValueValidator checks a candidate value for one configuration key before a
// write is accepted.
type ValueValidator func(value any) error

// ValidatorRegistry maps configuration keys to write validators.
type ValidatorRegistry struct {
	mu         sync.RWMutex
	validators map[string]ValueValidator
}

// NewValidatorRegistry creates an empty registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{validators: make(map[string]ValueValidator)}
}

// Register binds a validator to a key, replacing any previous one.
func (r *ValidatorRegistry) Register(key string, v ValueValidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[key] = v
}

// Check runs the validator for key, if one is registered. A failure is
// wrapped as a ValidationError.
func (r *ValidatorRegistry) Check(key string, value any) error {
	r.mu.RLock()
	v, ok := r.validators[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := v(value); err != nil {
		return &ValidationError{Key: key, Value: value, Message: err.Error()}
	}
	return nil
}

// IntRange returns a validator accepting integers (or numeric strings) within
// [min, max].
func IntRange(min, max int) ValueValidator {
	return func(value any) error {
		n, err := toInt(value)
		if err != nil {
			return err
		}
		if n < min || n > max {
			return fmt.Errorf("must be between %d and %d, got %d", min, max, n)
		}
		return nil
	}
}

// OneOf returns a validator accepting only the listed string values.
func OneOf(allowed ...string) ValueValidator {
	return func(value any) error {
		s := Stringify(value)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v, got %q", allowed, s)
	}
}

// PositiveDecimal returns a validator accepting decimal values greater than
// zero.
func PositiveDecimal() ValueValidator {
	return func(value any) error {
		f, err := strconv.ParseFloat(Stringify(value), 64)
		if err != nil {
			return fmt.Errorf("must be a decimal number, got %q", Stringify(value))
		}
		if f <= 0 {
			return fmt.Errorf("must be greater than zero, got %g", f)
		}
		return nil
	}
}

func toInt(value any) (int, error) {
	switch t := value.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("must be an integer, got %g", t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", value)
	}
}
