// Package modbundle implements the RMOD on-disk module bundle format: a
// manifest text blob plus an opaque payload, magic-tagged and
// length-prefixed.
package modbundle

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/tinyrange/ruzzle/internal/kernerr"
	"github.com/tinyrange/ruzzle/internal/modmanifest"
)

var magic = [4]byte{'R', 'M', 'O', 'D'}

const formatVersion = 1

// Bundle is a parsed RMOD bundle.
type Bundle struct {
	ManifestText string
	Manifest     *modmanifest.Manifest
	Payload      []byte
}

// Parse validates magic, version, and length bounds, checks the manifest
// is UTF-8 and parses, and requires a non-empty payload.
func Parse(buf []byte) (*Bundle, error) {
	if len(buf) < 14 {
		return nil, fmt.Errorf("modbundle: header too short: %w", kernerr.InvalidArg)
	}
	if [4]byte(buf[0:4]) != magic {
		return nil, fmt.Errorf("modbundle: bad magic: %w", kernerr.InvalidArg)
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != formatVersion {
		return nil, fmt.Errorf("modbundle: unsupported version %d: %w", version, kernerr.InvalidArg)
	}
	manifestLen := binary.LittleEndian.Uint32(buf[6:10])
	payloadLen := binary.LittleEndian.Uint32(buf[10:14])

	rest := buf[14:]
	total := uint64(manifestLen) + uint64(payloadLen)
	if total > uint64(len(rest)) {
		return nil, fmt.Errorf("modbundle: lengths exceed buffer: %w", kernerr.InvalidArg)
	}
	if payloadLen == 0 {
		return nil, fmt.Errorf("modbundle: empty payload: %w", kernerr.InvalidArg)
	}

	manifestBytes := rest[:manifestLen]
	if !utf8.Valid(manifestBytes) {
		return nil, fmt.Errorf("modbundle: manifest is not valid utf-8: %w", kernerr.InvalidArg)
	}
	manifestText := string(manifestBytes)

	manifest, err := modmanifest.Parse(manifestText)
	if err != nil {
		return nil, fmt.Errorf("modbundle: manifest: %w", err)
	}

	payload := append([]byte(nil), rest[manifestLen:manifestLen+payloadLen]...)

	return &Bundle{
		ManifestText: manifestText,
		Manifest:     manifest,
		Payload:      payload,
	}, nil
}

// Build encodes a bundle from manifestText and payload, refusing an empty
// manifest or payload, and always re-parses its own manifest as a
// self-check before returning.
func Build(manifestText string, payload []byte) ([]byte, error) {
	if manifestText == "" {
		return nil, fmt.Errorf("modbundle: empty manifest: %w", kernerr.InvalidArg)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("modbundle: empty payload: %w", kernerr.InvalidArg)
	}
	if _, err := modmanifest.Parse(manifestText); err != nil {
		return nil, fmt.Errorf("modbundle: manifest self-check: %w", err)
	}

	var out []byte
	out = append(out, magic[:]...)
	var hdr [10]byte
	binary.LittleEndian.PutUint16(hdr[0:2], formatVersion)
	binary.LittleEndian.PutUint32(hdr[2:6], uint32(len(manifestText)))
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(len(payload)))
	out = append(out, hdr[:]...)
	out = append(out, manifestText...)
	out = append(out, payload...)
	return out, nil
}
