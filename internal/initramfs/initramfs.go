// Package initramfs implements the RUZZLEFS container codec: a flat list
// of named byte blobs, 8-byte aligned, parsed or built as a pure function
// of its byte input.
package initramfs

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

var magic = [8]byte{'R', 'U', 'Z', 'Z', 'L', 'E', 'F', 'S'}

const formatVersion = 1

// Entry is one named blob inside the container.
type Entry struct {
	Name string
	Data []byte
}

// Parse decodes a RUZZLEFS image into its ordered entries.
func Parse(buf []byte) ([]Entry, error) {
	if len(buf) < 12 {
		return nil, fmt.Errorf("initramfs: header too short: %w", kernerr.InvalidArg)
	}
	if [8]byte(buf[0:8]) != magic {
		return nil, fmt.Errorf("initramfs: bad magic: %w", kernerr.InvalidArg)
	}
	version := binary.LittleEndian.Uint16(buf[8:10])
	if version != formatVersion {
		return nil, fmt.Errorf("initramfs: unsupported version %d: %w", version, kernerr.InvalidArg)
	}
	count := binary.LittleEndian.Uint16(buf[10:12])

	rest := buf[12:]
	offset := uint64(12) // absolute file offset; the 12-byte header is not 8-aligned
	entries := make([]Entry, 0, count)
	for i := uint16(0); i < count; i++ {
		if len(rest) < 10 {
			return nil, fmt.Errorf("initramfs: truncated entry header: %w", kernerr.InvalidArg)
		}
		nameLen := binary.LittleEndian.Uint16(rest[0:2])
		dataLen := binary.LittleEndian.Uint64(rest[2:10])
		rest = rest[10:]
		offset += 10

		total := uint64(nameLen) + dataLen
		if total > uint64(len(rest)) {
			return nil, fmt.Errorf("initramfs: entry exceeds remaining buffer: %w", kernerr.InvalidArg)
		}

		nameBytes := rest[:nameLen]
		if !utf8.Valid(nameBytes) {
			return nil, fmt.Errorf("initramfs: entry name is not valid utf-8: %w", kernerr.InvalidArg)
		}
		data := rest[uint64(nameLen) : uint64(nameLen)+dataLen]
		entries = append(entries, Entry{Name: string(nameBytes), Data: append([]byte(nil), data...)})

		rest = rest[uint64(nameLen)+dataLen:]
		offset += uint64(nameLen) + dataLen

		pad := alignPad(offset)
		if uint64(len(rest)) < pad {
			return nil, fmt.Errorf("initramfs: truncated padding: %w", kernerr.InvalidArg)
		}
		rest = rest[pad:]
		offset += pad
	}

	return entries, nil
}

// Build reproduces the on-disk layout for entries.
func Build(entries []Entry) []byte {
	var out []byte
	out = append(out, magic[:]...)
	var hdrTail [4]byte
	binary.LittleEndian.PutUint16(hdrTail[0:2], formatVersion)
	binary.LittleEndian.PutUint16(hdrTail[2:4], uint16(len(entries)))
	out = append(out, hdrTail[:]...)

	offset := uint64(len(out)) // == 12, the fixed header size
	for _, e := range entries {
		var hdr [10]byte
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(e.Name)))
		binary.LittleEndian.PutUint64(hdr[2:10], uint64(len(e.Data)))
		out = append(out, hdr[:]...)
		out = append(out, e.Name...)
		out = append(out, e.Data...)
		offset += 10 + uint64(len(e.Name)) + uint64(len(e.Data))

		pad := alignPad(offset)
		out = append(out, make([]byte, pad)...)
		offset += pad
	}
	return out
}

// alignPad returns the number of padding bytes needed to round the
// absolute file offset up to the next multiple of 8.
func alignPad(offset uint64) uint64 {
	rem := offset % 8
	if rem == 0 {
		return 0
	}
	return 8 - rem
}
