package registry

import (
	"fmt"

	"github.com/tinyrange/ruzzle/internal/kernerr"
	"github.com/tinyrange/ruzzle/internal/modmanifest"
)

// ModuleState is a module's lifecycle state.
type ModuleState int

const (
	Stopped ModuleState = iota
	Running
	Failed
)

// ModuleRecord pairs a manifest with its lifecycle state.
type ModuleRecord struct {
	Manifest *modmanifest.Manifest
	State    ModuleState
}

// Manager holds the set of known modules and the ServiceRegistry they
// register services into. It is single-owner: callers serialize access.
type Manager struct {
	modules  map[string]*ModuleRecord
	order    []string // registration order, for deterministic planning
	registry *ServiceRegistry
}

// NewManager returns an empty module manager.
func NewManager() *Manager {
	return &Manager{
		modules:  make(map[string]*ModuleRecord),
		registry: NewServiceRegistry(),
	}
}

// Registry exposes the underlying service registry for lookups.
func (m *Manager) Registry() *ServiceRegistry { return m.registry }

// ModuleNames returns every registered module name in registration order.
func (m *Manager) ModuleNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// RegisterModule validates and stores manifest under Stopped state.
func (m *Manager) RegisterModule(manifest *modmanifest.Manifest) error {
	if manifest.Name == "" {
		return fmt.Errorf("registry: empty module name: %w", kernerr.InvalidArg)
	}
	if _, exists := m.modules[manifest.Name]; exists {
		return fmt.Errorf("registry: module %q already registered: %w", manifest.Name, kernerr.InvalidArg)
	}
	for _, dep := range manifest.Depends {
		if dep == manifest.Name {
			return fmt.Errorf("registry: module %q depends on itself: %w", manifest.Name, kernerr.InvalidArg)
		}
	}
	for _, svc := range manifest.Provides {
		if !ValidServiceName(svc) {
			return fmt.Errorf("registry: module %q provides invalid service %q: %w", manifest.Name, svc, kernerr.InvalidArg)
		}
	}
	for _, c := range manifest.RequiresCaps {
		if c == "" {
			return fmt.Errorf("registry: module %q has an empty required capability: %w", manifest.Name, kernerr.InvalidArg)
		}
	}

	m.modules[manifest.Name] = &ModuleRecord{Manifest: manifest, State: Stopped}
	m.order = append(m.order, manifest.Name)
	return nil
}

// Module returns the record for name, or NotFound.
func (m *Manager) Module(name string) (*ModuleRecord, error) {
	rec, ok := m.modules[name]
	if !ok {
		return nil, kernerr.NotFound
	}
	return rec, nil
}

// StartModule starts the named module, enforcing the dependency and
// provides-conflict checks of the start protocol.
func (m *Manager) StartModule(name string) error {
	rec, ok := m.modules[name]
	if !ok {
		return fmt.Errorf("registry: module %q: %w", name, kernerr.NotFound)
	}
	if rec.State == Failed {
		return fmt.Errorf("registry: module %q is failed: %w", name, kernerr.InvalidArg)
	}
	if rec.State == Running {
		return nil
	}

	for _, dep := range rec.Manifest.Depends {
		depRec, ok := m.modules[dep]
		if !ok {
			return fmt.Errorf("registry: module %q depends on unknown module %q: %w", name, dep, kernerr.NotFound)
		}
		if depRec.State != Running {
			return fmt.Errorf("registry: module %q depends on non-running module %q: %w", name, dep, kernerr.InvalidArg)
		}
	}

	for _, svc := range rec.Manifest.Provides {
		if _, err := m.registry.Lookup(svc); err == nil {
			rec.State = Failed
			return fmt.Errorf("registry: module %q: service %q already registered: %w", name, svc, kernerr.InvalidArg)
		}
	}

	for _, svc := range rec.Manifest.Provides {
		if err := m.registry.Register(svc, name); err != nil {
			rec.State = Failed
			return fmt.Errorf("registry: module %q: %w", name, err)
		}
	}

	rec.State = Running
	return nil
}

// StopModule stops a running module and unregisters its services.
func (m *Manager) StopModule(name string) error {
	rec, ok := m.modules[name]
	if !ok {
		return fmt.Errorf("registry: module %q: %w", name, kernerr.NotFound)
	}
	if rec.State != Running {
		return fmt.Errorf("registry: module %q is not running: %w", name, kernerr.InvalidArg)
	}
	m.registry.UnregisterModule(name)
	rec.State = Stopped
	return nil
}

// RestartModule stops a running module (if running) then starts it again.
// A Failed module is reset to Stopped first, so restart is the explicit
// way out of the Failed state. A failed restart marks the module Failed
// and propagates the error.
func (m *Manager) RestartModule(name string) error {
	rec, ok := m.modules[name]
	if !ok {
		return fmt.Errorf("registry: module %q: %w", name, kernerr.NotFound)
	}
	if rec.State == Running || rec.State == Failed {
		m.registry.UnregisterModule(name)
		rec.State = Stopped
	}
	if err := m.StartModule(name); err != nil {
		rec.State = Failed
		return err
	}
	return nil
}

// ResolveStartPlan computes a topological order over Depends by
// repeatedly picking any module with no unmet dependency. A cycle
// returns InvalidArg.
func (m *Manager) ResolveStartPlan() ([]string, error) {
	names := m.order

	placed := make(map[string]bool, len(names))
	var plan []string

	for len(plan) < len(names) {
		progressed := false
		for _, name := range names {
			if placed[name] {
				continue
			}
			rec := m.modules[name]
			ready := true
			for _, dep := range rec.Manifest.Depends {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				plan = append(plan, name)
				placed[name] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("registry: dependency cycle detected: %w", kernerr.InvalidArg)
		}
	}
	return plan, nil
}
