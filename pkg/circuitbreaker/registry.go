package circuitbreaker

import "sync"

// Registry hands out one Wrapper per breaker name so that routes naming the
// same breaker share its counts.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Wrapper
	newCfg   func(name string) Config
}

func NewRegistry(newCfg func(name string) Config) *Registry {
	if newCfg == nil {
		newCfg = DefaultConfig
	}
	return &Registry{
		breakers: make(map[string]*Wrapper),
		newCfg:   newCfg,
	}
}

func (r *Registry) Get(name string) *Wrapper {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.breakers[name]; ok {
		return w
	}
	w := NewWrapper(r.newCfg(name))
	r.breakers[name] = w
	return w
}

// Names lists the breakers created so far.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}
