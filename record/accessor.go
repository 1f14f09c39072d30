package record

import "fmt"

// Accessor reads and writes one named field on a Record. Strategies address
// fields by name through the accessor map instead of reflecting over structs.
type Accessor interface {
	// Get returns the field value and whether it is present.
	Get(r *Record) (string, bool)

	// Set writes the field value with the given provenance.
	Set(r *Record, value string, prov Provenance) error
}

type fieldAccessor struct {
	name string
}

func (a fieldAccessor) Get(r *Record) (string, bool) {
	return r.Get(a.name)
}

func (a fieldAccessor) Set(r *Record, value string, prov Provenance) error {
	if err := r.Set(a.name, value, prov); err != nil {
		return fmt.Errorf("set %s: %w", a.name, err)
	}
	return nil
}

// AccessorMap maps field names to their accessors. Built once at startup from
// the output schema's field list.
type AccessorMap map[string]Accessor

// NewAccessorMap builds an accessor for every named field.
func NewAccessorMap(fields []string) AccessorMap {
	m := make(AccessorMap, len(fields))
	for _, f := range fields {
		m[f] = fieldAccessor{name: f}
	}
	return m
}

// For returns the accessor for a field, creating a plain field accessor when
// the field is not in the map. Strategies may read source fields that are not
// part of the output schema.
func (m AccessorMap) For(field string) Accessor {
	if a, ok := m[field]; ok {
		return a
	}
	return fieldAccessor{name: field}
}
