// Package registry implements the service registry (service name → owning
// module) and the module manager that layers lifecycle state and
// dependency ordering on top of it.
package registry

import (
	"fmt"
	"regexp"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

var serviceNameRe = regexp.MustCompile(`^ruzzle(\.[a-z0-9-]+)+$`)

// ValidServiceName reports whether name matches "ruzzle"("."segment)+
// with each segment non-empty and drawn from [a-z0-9-].
func ValidServiceName(name string) bool {
	return serviceNameRe.MatchString(name)
}

// ServiceRegistry is a unique mapping of service name to owning module.
type ServiceRegistry struct {
	owners map[string]string
}

// NewServiceRegistry returns an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{owners: make(map[string]string)}
}

// Register maps service to module. Rejects an empty module, an invalid
// service name, or a duplicate registration.
func (r *ServiceRegistry) Register(service, module string) error {
	if module == "" {
		return fmt.Errorf("registry: empty module name: %w", kernerr.InvalidArg)
	}
	if !ValidServiceName(service) {
		return fmt.Errorf("registry: invalid service name %q: %w", service, kernerr.InvalidArg)
	}
	if _, exists := r.owners[service]; exists {
		return fmt.Errorf("registry: service %q already registered: %w", service, kernerr.InvalidArg)
	}
	r.owners[service] = module
	return nil
}

// Lookup returns the module owning service, or NotFound.
func (r *ServiceRegistry) Lookup(service string) (string, error) {
	owner, ok := r.owners[service]
	if !ok {
		return "", kernerr.NotFound
	}
	return owner, nil
}

// UnregisterModule removes every service owned by module and reports how
// many were removed.
func (r *ServiceRegistry) UnregisterModule(module string) int {
	count := 0
	for service, owner := range r.owners {
		if owner == module {
			delete(r.owners, service)
			count++
		}
	}
	return count
}

// List returns every (service, module) pair. Order is unspecified; callers
// needing a stable order should sort.
func (r *ServiceRegistry) List() map[string]string {
	out := make(map[string]string, len(r.owners))
	for k, v := range r.owners {
		out[k] = v
	}
	return out
}
