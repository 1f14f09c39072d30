package completion

import (
	"sort"
	"sync"
)

// Prompt declares a completion prompt: which record fields are relevant
// context for it. The client sends only the declared fields so prompts stay
// focused and requests stay small.
type Prompt struct {
	// Key is the prompt identifier sent to the completion service.
	Key string

	// ContextFields are the record fields included in the request, when
	// present. Empty means send every available field.
	ContextFields []string
}

// PromptRegistry maps prompt keys to their declarations.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

// NewPromptRegistry creates a registry preloaded with the default prompts.
func NewPromptRegistry() *PromptRegistry {
	r := &PromptRegistry{prompts: make(map[string]Prompt)}

	r.Register(Prompt{
		Key:           "book_description",
		ContextFields: []string{"title", "subtitle", "contributor", "series", "bisac_code", "audience", "pages"},
	})
	r.Register(Prompt{
		Key:           "search_keywords",
		ContextFields: []string{"title", "subtitle", "contributor", "series", "bisac_code", "description"},
	})
	r.Register(Prompt{
		Key:           "audience_note",
		ContextFields: []string{"title", "bisac_code", "audience"},
	})

	return r
}

// Register adds or replaces a prompt declaration.
func (r *PromptRegistry) Register(p Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[p.Key] = p
}

// Lookup returns the prompt declaration for key.
func (r *PromptRegistry) Lookup(key string) (Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[key]
	return p, ok
}

// Keys returns all registered prompt keys in sorted order.
func (r *PromptRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.prompts))
	for k := range r.prompts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// filter returns the subset of fields relevant to the prompt. Unknown prompt
// keys pass everything through.
func (r *PromptRegistry) filter(key string, fields map[string]string) map[string]string {
	p, ok := r.Lookup(key)
	if !ok || len(p.ContextFields) == 0 {
		return fields
	}
	out := make(map[string]string, len(p.ContextFields))
	for _, f := range p.ContextFields {
		if v, ok := fields[f]; ok {
			out[f] = v
		}
	}
	return out
}
