// Package modmanifest parses the line-oriented TOML-subset module
// manifest format: key = value lines, quoted strings, and bracketed
// string lists, with no nested tables.
package modmanifest

import (
	"fmt"
	"strings"

	"github.com/tinyrange/ruzzle/internal/kernerr"
	"golang.org/x/mod/semver"
)

// Manifest is the parsed module manifest.
type Manifest struct {
	Name         string
	Version      string
	Provides     []string
	Slots        []string
	RequiresCaps []string
	Depends      []string
}

// Parse parses the manifest text. Unknown keys, lines missing "=", and
// duplicate keys all fail with InvalidArg.
func Parse(text string) (*Manifest, error) {
	seen := make(map[string]bool)
	m := &Manifest{}
	haveName, haveVersion := false, false

	for lineNo, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, fmt.Errorf("modmanifest: line %d missing '=': %w", lineNo+1, kernerr.InvalidArg)
		}
		key := strings.TrimSpace(line[:eq])
		rawValue := strings.TrimSpace(line[eq+1:])

		if seen[key] {
			return nil, fmt.Errorf("modmanifest: duplicate key %q: %w", key, kernerr.InvalidArg)
		}
		seen[key] = true

		switch key {
		case "name":
			s, err := parseString(rawValue)
			if err != nil {
				return nil, err
			}
			m.Name = s
			haveName = true
		case "version":
			s, err := parseString(rawValue)
			if err != nil {
				return nil, err
			}
			m.Version = s
			haveVersion = true
		case "provides":
			list, err := parseList(rawValue)
			if err != nil {
				return nil, err
			}
			m.Provides = list
		case "slots":
			list, err := parseList(rawValue)
			if err != nil {
				return nil, err
			}
			m.Slots = list
		case "requires_caps":
			list, err := parseList(rawValue)
			if err != nil {
				return nil, err
			}
			m.RequiresCaps = list
		case "depends":
			list, err := parseList(rawValue)
			if err != nil {
				return nil, err
			}
			m.Depends = list
		default:
			return nil, fmt.Errorf("modmanifest: unknown key %q: %w", key, kernerr.InvalidArg)
		}
	}

	if !haveName || m.Name == "" {
		return nil, fmt.Errorf("modmanifest: missing required key \"name\": %w", kernerr.InvalidArg)
	}
	if !haveVersion || m.Version == "" {
		return nil, fmt.Errorf("modmanifest: missing required key \"version\": %w", kernerr.InvalidArg)
	}
	return m, nil
}

func parseString(raw string) (string, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", fmt.Errorf("modmanifest: value %q is not a quoted string: %w", raw, kernerr.InvalidArg)
	}
	return raw[1 : len(raw)-1], nil
}

func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != '[' || raw[len(raw)-1] != ']' {
		return nil, fmt.Errorf("modmanifest: value %q is not a list: %w", raw, kernerr.InvalidArg)
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return nil, nil
	}
	if strings.HasSuffix(inner, ",") {
		return nil, fmt.Errorf("modmanifest: trailing comma in list: %w", kernerr.InvalidArg)
	}

	var out []string
	for _, item := range strings.Split(inner, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("modmanifest: empty list item: %w", kernerr.InvalidArg)
		}
		s, err := parseString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ValidVersion reports whether v parses as a valid semantic version,
// tolerating manifests that omit the leading "v" semver.IsValid expects.
func ValidVersion(v string) bool {
	if v == "" {
		return false
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	return semver.IsValid(v)
}
