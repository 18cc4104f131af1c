package catalog

import (
	"bytes"
	"testing"

	"github.com/tinyrange/ruzzle/internal/modbundle"
	"github.com/tinyrange/ruzzle/internal/registry"
)

const sampleYAML = `
entries:
  - name: console-service
    version: "1.0.0"
    slots: ["console"]
    path: /modules/console.rmod
`

func TestParseCatalog(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e, err := c.Find("console-service")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if e.Version != "1.0.0" || e.Path != "/modules/console.rmod" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestParseRejectsInvalidVersion(t *testing.T) {
	bad := "entries:\n  - name: x\n    version: \"not-a-version\"\n    path: /x\n"
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatalf("expected error for invalid version")
	}
}

func TestInstallRegistersModule(t *testing.T) {
	manifestText := "name = \"console-service\"\nversion = \"1.0.0\"\n"
	bundleData, err := modbundle.Build(manifestText, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("build bundle: %v", err)
	}

	mgr := registry.NewManager()
	var buf bytes.Buffer
	entry := Entry{Name: "console-service", Path: "/modules/console.rmod"}
	if err := Install(mgr, entry, bundleData, &buf); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := mgr.Module("console-service"); err != nil {
		t.Fatalf("expected module registered: %v", err)
	}
}
