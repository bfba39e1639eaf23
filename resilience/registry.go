package resilience

import (
	"sort"
	"sync"
)

// Registry keeps one Breaker per service key. Every breaker shares the
// registry's template config with Name set to its key.
type Registry struct {
	template BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry that builds breakers from template.
func NewRegistry(template BreakerConfig) *Registry {
	return &Registry{
		template: template,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (r *Registry) Get(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[key]; ok {
		return b
	}
	cfg := r.template
	cfg.Name = key
	b := NewBreaker(cfg)
	r.breakers[key] = b
	return b
}

// BreakerStatus is a point-in-time view of one breaker.
type BreakerStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// Status returns the state of every known breaker sorted by name.
func (r *Registry) Status() []BreakerStatus {
	r.mu.Lock()
	list := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make([]BreakerStatus, 0, len(list))
	for _, b := range list {
		out = append(out, BreakerStatus{
			Name:     b.Name(),
			State:    b.State().String(),
			Failures: b.Failures(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset closes every breaker.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
