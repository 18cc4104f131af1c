// Package elfload parses static ELF64 little-endian EXEC images for
// x86_64 and replays their PT_LOAD segments onto a caller-supplied sink.
// Rather than using debug/elf, this package validates the header by
// hand, field by field and in a fixed order,
// because the loader's contract requires pinpointing exactly which
// field failed rather than debug/elf's single aggregate error.
package elfload

import (
	"encoding/binary"
	"fmt"

	"github.com/tinyrange/ruzzle/internal/kernerr"
	"github.com/tinyrange/ruzzle/internal/pagingops"
)

const (
	ehdrSize   = 64
	phdrSize   = 56
	etExec     = 2
	emX8664    = 62
	ptLoad     = 1
	pfExecute  = 1
	pfWrite    = 2
	pfRead     = 4
	classElf64 = 2
	dataLSB    = 1
)

var magic = [4]byte{0x7F, 'E', 'L', 'F'}

// LoadSegment describes one PT_LOAD program header, already validated
// against the image it came from.
type LoadSegment struct {
	VAddr    uint64
	MemSize  uint64
	FileSize uint64
	Offset   uint64
	Flags    pagingops.Flags
}

// LoadedElf is the pure-data result of parsing an ELF64 image.
type LoadedElf struct {
	Entry    uint64
	Segments []LoadSegment
}

// ParseElf validates and parses image per the fixed field order: minimum
// length, magic, class, data encoding, type, machine, then header table
// bounds. Only PT_LOAD segments are collected.
func ParseElf(image []byte) (*LoadedElf, error) {
	if len(image) < ehdrSize {
		return nil, fmt.Errorf("elfload: image too short (%d bytes): %w", len(image), kernerr.InvalidArg)
	}
	if [4]byte(image[0:4]) != magic {
		return nil, fmt.Errorf("elfload: bad magic: %w", kernerr.InvalidArg)
	}
	if image[4] != classElf64 {
		return nil, fmt.Errorf("elfload: not a 64-bit image: %w", kernerr.InvalidArg)
	}
	if image[5] != dataLSB {
		return nil, fmt.Errorf("elfload: not little-endian: %w", kernerr.InvalidArg)
	}

	etype := binary.LittleEndian.Uint16(image[16:18])
	if etype != etExec {
		return nil, fmt.Errorf("elfload: not an EXEC image (e_type=%d): %w", etype, kernerr.InvalidArg)
	}
	machine := binary.LittleEndian.Uint16(image[18:20])
	if machine != emX8664 {
		return nil, fmt.Errorf("elfload: unsupported machine %d: %w", machine, kernerr.InvalidArg)
	}

	entry := binary.LittleEndian.Uint64(image[24:32])
	phoff := binary.LittleEndian.Uint64(image[32:40])
	phentsize := binary.LittleEndian.Uint16(image[54:56])
	phnum := binary.LittleEndian.Uint16(image[56:58])

	if phentsize < phdrSize {
		return nil, fmt.Errorf("elfload: program header entry size %d too small: %w", phentsize, kernerr.InvalidArg)
	}

	tableEnd := phoff + uint64(phentsize)*uint64(phnum)
	if tableEnd < phoff || tableEnd > uint64(len(image)) {
		return nil, fmt.Errorf("elfload: program header table out of bounds: %w", kernerr.InvalidArg)
	}

	out := &LoadedElf{Entry: entry}
	for i := uint16(0); i < phnum; i++ {
		base := phoff + uint64(i)*uint64(phentsize)
		hdr := image[base : base+uint64(phentsize)]

		ptype := binary.LittleEndian.Uint32(hdr[0:4])
		if ptype != ptLoad {
			continue
		}
		flags := binary.LittleEndian.Uint32(hdr[4:8])
		offset := binary.LittleEndian.Uint64(hdr[8:16])
		vaddr := binary.LittleEndian.Uint64(hdr[16:24])
		filesz := binary.LittleEndian.Uint64(hdr[32:40])
		memsz := binary.LittleEndian.Uint64(hdr[40:48])

		if memsz < filesz {
			return nil, fmt.Errorf("elfload: segment mem_size %d < file_size %d: %w", memsz, filesz, kernerr.InvalidArg)
		}
		if offset+filesz < offset || offset+filesz > uint64(len(image)) {
			return nil, fmt.Errorf("elfload: segment data out of bounds: %w", kernerr.InvalidArg)
		}

		segFlags := pagingops.FlagUser
		if flags&pfRead != 0 {
			segFlags |= pagingops.FlagRead
		}
		if flags&pfWrite != 0 {
			segFlags |= pagingops.FlagWrite
		}
		if flags&pfExecute != 0 {
			segFlags |= pagingops.FlagExecute
		}

		out.Segments = append(out.Segments, LoadSegment{
			VAddr:    vaddr,
			MemSize:  memsz,
			FileSize: filesz,
			Offset:   offset,
			Flags:    segFlags,
		})
	}

	return out, nil
}

// Sink receives the replayed effect of loading one segment. Implementations
// are trusted to be transactional per call; the loader itself is not and
// halts on the first error.
type Sink interface {
	Map(vaddr, memSize uint64, flags pagingops.Flags) error
	Copy(vaddr uint64, data []byte) error
	Zero(vaddr, size uint64) error
}

// LoadElf drives sink over every segment of parsed: map the full memory
// extent, copy the file bytes, and zero the remainder when mem_size
// exceeds file_size.
func LoadElf(image []byte, parsed *LoadedElf, sink Sink) error {
	for _, seg := range parsed.Segments {
		if err := sink.Map(seg.VAddr, seg.MemSize, seg.Flags); err != nil {
			return err
		}
		data := image[seg.Offset : seg.Offset+seg.FileSize]
		if err := sink.Copy(seg.VAddr, data); err != nil {
			return err
		}
		if seg.MemSize > seg.FileSize {
			if err := sink.Zero(seg.VAddr+seg.FileSize, seg.MemSize-seg.FileSize); err != nil {
				return err
			}
		}
	}
	return nil
}
