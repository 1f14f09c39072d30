package strategy

import (
	"sort"
	"sync"
)

// Registry maps output field names to their bound strategies. Each field has
// at most one strategy; binding a field again replaces the previous strategy
// (explicit override semantics, not an error).
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*Strategy
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*Strategy)}
}

// Bind binds a strategy to an output field name. The last binding for a name
// wins.
func (r *Registry) Bind(field string, s *Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[field] = s
}

// Lookup returns the strategy bound to field, if any.
func (r *Registry) Lookup(field string) (*Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.bindings[field]
	return s, ok
}

// Fields returns all bound field names in sorted order.
func (r *Registry) Fields() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fields := make([]string, 0, len(r.bindings))
	for f := range r.bindings {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Len returns the number of bound fields.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
