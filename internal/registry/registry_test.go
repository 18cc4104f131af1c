package registry

import (
	"testing"

	"github.com/tinyrange/ruzzle/internal/modmanifest"
)

func TestServiceRegistryRejectsDuplicates(t *testing.T) {
	r := NewServiceRegistry()
	if err := r.Register("ruzzle.console", "console-service"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("ruzzle.console", "other"); err == nil {
		t.Fatalf("expected error on duplicate registration")
	}
}

func TestServiceRegistryRejectsInvalidName(t *testing.T) {
	r := NewServiceRegistry()
	if err := r.Register("console", "console-service"); err == nil {
		t.Fatalf("expected error for name without ruzzle. prefix")
	}
}

func mustManifest(t *testing.T, name, version string, provides, depends []string) *modmanifest.Manifest {
	t.Helper()
	return &modmanifest.Manifest{Name: name, Version: version, Provides: provides, Depends: depends}
}

func TestStartModuleDependencyOrdering(t *testing.T) {
	m := NewManager()
	base := mustManifest(t, "base", "1.0.0", []string{"ruzzle.base"}, nil)
	top := mustManifest(t, "top", "1.0.0", []string{"ruzzle.top"}, []string{"base"})
	if err := m.RegisterModule(base); err != nil {
		t.Fatalf("register base: %v", err)
	}
	if err := m.RegisterModule(top); err != nil {
		t.Fatalf("register top: %v", err)
	}

	if err := m.StartModule("top"); err == nil {
		t.Fatalf("expected error starting top before base")
	}
	if err := m.StartModule("base"); err != nil {
		t.Fatalf("start base: %v", err)
	}
	if err := m.StartModule("top"); err != nil {
		t.Fatalf("start top: %v", err)
	}
}

func TestStartModuleConflictMarksFailed(t *testing.T) {
	m := NewManager()
	a := mustManifest(t, "a", "1.0.0", []string{"ruzzle.svc"}, nil)
	b := mustManifest(t, "b", "1.0.0", []string{"ruzzle.svc"}, nil)
	m.RegisterModule(a)
	m.RegisterModule(b)

	if err := m.StartModule("a"); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := m.StartModule("b"); err == nil {
		t.Fatalf("expected conflict starting b")
	}
	rec, _ := m.Module("b")
	if rec.State != Failed {
		t.Fatalf("expected b to be Failed, got %v", rec.State)
	}
	if err := m.StartModule("b"); err == nil {
		t.Fatalf("expected Failed module to refuse restart via StartModule")
	}
}

func TestResolveStartPlanDetectsCycle(t *testing.T) {
	m := NewManager()
	a := mustManifest(t, "a", "1.0.0", nil, []string{"b"})
	b := mustManifest(t, "b", "1.0.0", nil, []string{"a"})
	m.RegisterModule(a)
	m.RegisterModule(b)

	if _, err := m.ResolveStartPlan(); err == nil {
		t.Fatalf("expected cycle detection error")
	}
}

func TestResolveStartPlanOrdersDependenciesFirst(t *testing.T) {
	m := NewManager()
	base := mustManifest(t, "base", "1.0.0", nil, nil)
	top := mustManifest(t, "top", "1.0.0", nil, []string{"base"})
	m.RegisterModule(top)
	m.RegisterModule(base)

	plan, err := m.ResolveStartPlan()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	baseIdx, topIdx := -1, -1
	for i, name := range plan {
		if name == "base" {
			baseIdx = i
		}
		if name == "top" {
			topIdx = i
		}
	}
	if baseIdx == -1 || topIdx == -1 || baseIdx > topIdx {
		t.Fatalf("plan = %v, expected base before top", plan)
	}
}
