package initpipe

import (
	"context"
	"testing"

	"github.com/tinyrange/ruzzle/internal/modmanifest"
	"github.com/tinyrange/ruzzle/internal/registry"
)

func TestRunStartsEveryModule(t *testing.T) {
	mgr := registry.NewManager()
	p := New(mgr)

	manifests := []*modmanifest.Manifest{
		{Name: "base", Version: "1.0.0", Provides: []string{"ruzzle.base"}},
		{Name: "top", Version: "1.0.0", Provides: []string{"ruzzle.top"}, Depends: []string{"base"}},
	}
	if err := p.RegisterAll(manifests); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"base", "top"} {
		rec, err := mgr.Module(name)
		if err != nil {
			t.Fatalf("module %s: %v", name, err)
		}
		if rec.State != registry.Running {
			t.Fatalf("module %s state = %v, want Running", name, rec.State)
		}
	}
}

func TestRunDetectsCycle(t *testing.T) {
	mgr := registry.NewManager()
	p := New(mgr)
	manifests := []*modmanifest.Manifest{
		{Name: "a", Version: "1.0.0", Depends: []string{"b"}},
		{Name: "b", Version: "1.0.0", Depends: []string{"a"}},
	}
	p.RegisterAll(manifests)
	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected error for cyclic dependency")
	}
}
