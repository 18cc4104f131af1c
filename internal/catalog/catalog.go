// Package catalog models the installable module catalog the shell's
// catalog/install/remove opcodes operate over: a YAML list of available
// bundles, staged into a module manager on install with a progress meter.
package catalog

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/tinyrange/ruzzle/internal/kernerr"
	"github.com/tinyrange/ruzzle/internal/modbundle"
	"github.com/tinyrange/ruzzle/internal/modmanifest"
	"github.com/tinyrange/ruzzle/internal/registry"
)

// Entry is one catalog-listed bundle, stored as plain file bytes under
// Path so Install can read and parse it as an RMOD bundle.
type Entry struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Slots        []string `yaml:"slots"`
	RequiresCaps []string `yaml:"requires_caps"`
	Path         string   `yaml:"path"`
}

// Catalog is a parsed catalog.yaml: an ordered list of installable
// entries keyed by name.
type Catalog struct {
	Entries []Entry
}

// Parse decodes a catalog.yaml document.
func Parse(data []byte) (*Catalog, error) {
	var raw struct {
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: %w: %v", kernerr.InvalidArg, err)
	}
	for _, e := range raw.Entries {
		if e.Name == "" || e.Path == "" {
			return nil, fmt.Errorf("catalog: entry missing name or path: %w", kernerr.InvalidArg)
		}
		if e.Version != "" && !modmanifest.ValidVersion(e.Version) {
			return nil, fmt.Errorf("catalog: entry %q has invalid version %q: %w", e.Name, e.Version, kernerr.InvalidArg)
		}
	}
	return &Catalog{Entries: raw.Entries}, nil
}

// Find returns the catalog entry named name.
func (c *Catalog) Find(name string) (Entry, error) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, kernerr.NotFound
}

// Install reads bundleData (the RMOD bytes for entry), renders progress to
// out as it does so, and registers the parsed manifest with mgr.
func Install(mgr *registry.Manager, entry Entry, bundleData []byte, out io.Writer) error {
	bar := progressbar.NewOptions64(
		int64(len(bundleData)),
		progressbar.OptionSetDescription(fmt.Sprintf("installing %s", entry.Name)),
		progressbar.OptionSetWriter(out),
	)
	defer bar.Close()

	const chunk = 4096
	for offset := 0; offset < len(bundleData); offset += chunk {
		end := offset + chunk
		if end > len(bundleData) {
			end = len(bundleData)
		}
		_ = bar.Add(end - offset)
	}

	bundle, err := modbundle.Parse(bundleData)
	if err != nil {
		return fmt.Errorf("catalog: install %s: %w", entry.Name, err)
	}
	if err := mgr.RegisterModule(bundle.Manifest); err != nil {
		return fmt.Errorf("catalog: install %s: %w", entry.Name, err)
	}
	return nil
}
