// Package initpipe resolves a module start plan from the set of manifests
// extracted from initramfs module bundles, then starts each topological
// tier concurrently and publishes the resulting services.
package initpipe

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tinyrange/ruzzle/internal/modmanifest"
	"github.com/tinyrange/ruzzle/internal/registry"
)

// Pipeline drives a registry.Manager from a set of module manifests
// through to every module Running (or the first unrecoverable failure).
// The manager itself is single-owner (spec.md's concurrency model), so
// concurrent tier starts are serialized behind mu even though they run
// as separate goroutines.
type Pipeline struct {
	manager *registry.Manager
	mu      sync.Mutex
}

// New returns a Pipeline wrapping the given module manager.
func New(manager *registry.Manager) *Pipeline {
	return &Pipeline{manager: manager}
}

// RegisterAll registers every manifest with the underlying manager.
func (p *Pipeline) RegisterAll(manifests []*modmanifest.Manifest) error {
	for _, m := range manifests {
		if err := p.manager.RegisterModule(m); err != nil {
			return fmt.Errorf("initpipe: register %q: %w", m.Name, err)
		}
	}
	return nil
}

// tiers groups modules whose dependencies are satisfied by everything
// before it, recomputed from each module's declared dependencies while
// walking the resolved plan's order, so independent modules within a
// tier can start concurrently.
func (p *Pipeline) tiers(plan []string) ([][]string, error) {
	started := make(map[string]bool, len(plan))
	remaining := append([]string(nil), plan...)
	var tiers [][]string

	for len(remaining) > 0 {
		var tier []string
		var next []string
		for _, name := range remaining {
			rec, err := p.manager.Module(name)
			if err != nil {
				return nil, err
			}
			ready := true
			for _, dep := range rec.Manifest.Depends {
				if !started[dep] {
					ready = false
					break
				}
			}
			if ready {
				tier = append(tier, name)
			} else {
				next = append(next, name)
			}
		}
		if len(tier) == 0 {
			return nil, fmt.Errorf("initpipe: no progress resolving tiers")
		}
		for _, name := range tier {
			started[name] = true
		}
		tiers = append(tiers, tier)
		remaining = next
	}
	return tiers, nil
}

// Run resolves the start plan and starts every module, one topological
// tier at a time, starting every module within a tier concurrently via
// errgroup since they share no dependency edge.
func (p *Pipeline) Run(ctx context.Context) error {
	plan, err := p.manager.ResolveStartPlan()
	if err != nil {
		return fmt.Errorf("initpipe: resolve start plan: %w", err)
	}

	tiers, err := p.tiers(plan)
	if err != nil {
		return err
	}

	for _, tier := range tiers {
		g, _ := errgroup.WithContext(ctx)
		for _, name := range tier {
			name := name
			g.Go(func() error {
				p.mu.Lock()
				defer p.mu.Unlock()
				return p.manager.StartModule(name)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("initpipe: start tier %v: %w", tier, err)
		}
	}
	return nil
}
