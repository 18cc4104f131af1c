package modmanifest

import "testing"

func TestParseBasic(t *testing.T) {
	text := `
name = "console-service"
version = "1.0.0"
provides = [ "ruzzle.console" ]
slots = [ "console" ]
`
	m, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Name != "console-service" || m.Version != "1.0.0" {
		t.Fatalf("got %+v", m)
	}
	if len(m.Provides) != 1 || m.Provides[0] != "ruzzle.console" {
		t.Fatalf("provides = %+v", m.Provides)
	}
	if len(m.RequiresCaps) != 0 {
		t.Fatalf("expected empty requires_caps default")
	}
}

func TestParseRejectsDuplicateKey(t *testing.T) {
	text := "name = \"a\"\nname = \"b\"\nversion = \"1\"\n"
	if _, err := Parse(text); err == nil {
		t.Fatalf("expected error for duplicate key")
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	text := "name = \"a\"\nversion = \"1\"\nbogus = \"x\"\n"
	if _, err := Parse(text); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestParseRejectsMissingEquals(t *testing.T) {
	if _, err := Parse("name \"a\"\n"); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}

func TestParseRejectsTrailingComma(t *testing.T) {
	text := "name = \"a\"\nversion = \"1\"\nslots = [ \"x\", ]\n"
	if _, err := Parse(text); err == nil {
		t.Fatalf("expected error for trailing comma")
	}
}

func TestParseRequiresNameAndVersion(t *testing.T) {
	if _, err := Parse("slots = [ \"x\" ]\n"); err == nil {
		t.Fatalf("expected error for missing name/version")
	}
}

func TestValidVersion(t *testing.T) {
	if !ValidVersion("1.2.3") {
		t.Fatalf("expected 1.2.3 to be valid")
	}
	if ValidVersion("not-a-version") {
		t.Fatalf("expected not-a-version to be invalid")
	}
}
