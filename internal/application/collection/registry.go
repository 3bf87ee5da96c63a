package collection

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
)

// WildcardEndpoint matches any endpoint of an integration type.
const WildcardEndpoint = "*"

type registration struct {
	pattern string
	factory collection.CollectorFactory
}

// Registry maps (integration type, endpoint pattern) keys to collector
// factories. Within a type the longest matching endpoint substring wins and
// the wildcard is the fallback.
type Registry struct {
	mu      sync.RWMutex
	entries map[partner.IntegrationType][]registration
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[partner.IntegrationType][]registration),
	}
}

// Register adds a factory for an integration type and endpoint pattern.
func (r *Registry) Register(integrationType partner.IntegrationType, endpointPattern string, factory collection.CollectorFactory) error {
	if !integrationType.IsValid() {
		return fmt.Errorf("register collector: unknown integration type %q", integrationType)
	}
	if factory == nil {
		return fmt.Errorf("register collector: nil factory for %s/%s", integrationType, endpointPattern)
	}
	pattern := strings.ToLower(strings.TrimSpace(endpointPattern))
	if pattern == "" {
		pattern = WildcardEndpoint
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.entries[integrationType] {
		if reg.pattern == pattern {
			return fmt.Errorf("register collector: %s/%s already registered", integrationType, pattern)
		}
	}
	r.entries[integrationType] = append(r.entries[integrationType], registration{pattern: pattern, factory: factory})
	return nil
}

// MustRegister is Register that panics on error; for wiring at startup.
func (r *Registry) MustRegister(integrationType partner.IntegrationType, endpointPattern string, factory collection.CollectorFactory) {
	if err := r.Register(integrationType, endpointPattern, factory); err != nil {
		panic(err)
	}
}

// Resolve picks the factory for a supplier's integration.
func (r *Registry) Resolve(integrationType partner.IntegrationType, endpoint string) (collection.CollectorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint = strings.ToLower(endpoint)
	var (
		best     *registration
		fallback *registration
	)
	for i := range r.entries[integrationType] {
		reg := &r.entries[integrationType][i]
		if reg.pattern == WildcardEndpoint {
			fallback = reg
			continue
		}
		if strings.Contains(endpoint, reg.pattern) && (best == nil || len(reg.pattern) > len(best.pattern)) {
			best = reg
		}
	}
	if best != nil {
		return best.factory, nil
	}
	if fallback != nil {
		return fallback.factory, nil
	}
	return nil, fmt.Errorf("%w: type=%s endpoint=%s", collection.ErrCollectorNotFound, integrationType, endpoint)
}

// Keys lists registered "type/pattern" keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0)
	for t, regs := range r.entries {
		for _, reg := range regs {
			keys = append(keys, string(t)+"/"+reg.pattern)
		}
	}
	sort.Strings(keys)
	return keys
}
