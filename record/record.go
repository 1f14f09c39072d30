// Package record provides the sparse metadata record that field resolution
// operates on, along with per-field provenance tracking for auditability.
package record

import (
	"fmt"
	"sort"
	"time"
)

// Origin identifies what produced a field's value.
type Origin string

const (
	// OriginSource marks a value that arrived with the input record.
	OriginSource Origin = "source"
	// OriginStrategy marks a value written by a resolution strategy.
	OriginStrategy Origin = "strategy"
	// OriginCompletion marks a value supplied by the completion service.
	OriginCompletion Origin = "completion"
	// OriginFallback marks a value substituted after a completion failure.
	OriginFallback Origin = "fallback"
	// OriginRepair marks a value rewritten by error recovery.
	OriginRepair Origin = "repair"
)

// Provenance records which strategy and source produced a field's value.
type Provenance struct {
	// Strategy is the name of the strategy kind that populated the field
	// ("direct", "computed", "default", "conditional", "date", "completion").
	Strategy string `json:"strategy"`

	// Origin classifies the value source.
	Origin Origin `json:"origin"`

	// Source is the origin identifier (config level, source field name,
	// prompt key, or repair name).
	Source string `json:"source,omitempty"`

	// RawCompletion preserves the completion service's raw value before any
	// fallback substitution, so downstream stages can distinguish
	// author-supplied from machine-supplied text.
	RawCompletion string `json:"raw_completion,omitempty"`

	// ResolvedAt is when the field was populated.
	ResolvedAt time.Time `json:"resolved_at"`
}

// Record is a sparse key/value attribute set for one item plus a provenance
// sub-map for every populated key. It is mutated only during resolution and
// repair; Freeze makes it read-only before reporting.
type Record struct {
	attrs  map[string]string
	prov   map[string]Provenance
	frozen bool
}

// New creates a Record seeded with the given source attributes. Every seeded
// key gets source provenance.
func New(attrs map[string]string) *Record {
	r := &Record{
		attrs: make(map[string]string, len(attrs)),
		prov:  make(map[string]Provenance, len(attrs)),
	}
	now := time.Now()
	for k, v := range attrs {
		r.attrs[k] = v
		r.prov[k] = Provenance{Strategy: "source", Origin: OriginSource, ResolvedAt: now}
	}
	return r
}

// Get returns the value for key and whether the key is present. A key present
// with an empty value reports ok=true.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.attrs[key]
	return v, ok
}

// Value returns the value for key, or "" if absent.
func (r *Record) Value(key string) string {
	return r.attrs[key]
}

// Set writes a value with its provenance. It fails if the record is frozen.
func (r *Record) Set(key, value string, prov Provenance) error {
	if r.frozen {
		return fmt.Errorf("record is frozen: cannot set %q", key)
	}
	if prov.ResolvedAt.IsZero() {
		prov.ResolvedAt = time.Now()
	}
	r.attrs[key] = value
	r.prov[key] = prov
	return nil
}

// Delete removes a key and its provenance. It fails if the record is frozen.
func (r *Record) Delete(key string) error {
	if r.frozen {
		return fmt.Errorf("record is frozen: cannot delete %q", key)
	}
	delete(r.attrs, key)
	delete(r.prov, key)
	return nil
}

// Provenance returns the provenance for key, if any.
func (r *Record) Provenance(key string) (Provenance, bool) {
	p, ok := r.prov[key]
	return p, ok
}

// Keys returns all present keys in sorted order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.attrs))
	for k := range r.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Completed returns the field names populated by the completion service, in
// sorted order.
func (r *Record) Completed() []string {
	var fields []string
	for k, p := range r.prov {
		if p.Origin == OriginCompletion {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	return fields
}

// Len returns the number of present keys.
func (r *Record) Len() int {
	return len(r.attrs)
}

// Freeze makes the record read-only. Reporting consumes frozen records.
func (r *Record) Freeze() {
	r.frozen = true
}

// Frozen reports whether the record has been frozen.
func (r *Record) Frozen() bool {
	return r.frozen
}

// Clone returns a deep, unfrozen copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		attrs: make(map[string]string, len(r.attrs)),
		prov:  make(map[string]Provenance, len(r.prov)),
	}
	for k, v := range r.attrs {
		c.attrs[k] = v
	}
	for k, p := range r.prov {
		c.prov[k] = p
	}
	return c
}
