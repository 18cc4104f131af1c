package elfload

import (
	"encoding/binary"
	"testing"

	"github.com/tinyrange/ruzzle/internal/pagingops"
)

// buildTinyExec constructs a minimal ELF64 EXEC image with a single
// PT_LOAD R+X segment: vaddr 0x400000, 4 bytes of file data at offset
// 0x100, 8 bytes of mem size.
func buildTinyExec() []byte {
	const (
		ehdrLen = 64
		phdrLen = 56
		dataOff = 0x100
	)
	buf := make([]byte, dataOff+4)

	copy(buf[0:4], magic[:])
	buf[4] = classElf64
	buf[5] = dataLSB
	binary.LittleEndian.PutUint16(buf[16:18], etExec)
	binary.LittleEndian.PutUint16(buf[18:20], emX8664)
	binary.LittleEndian.PutUint64(buf[24:32], 0x400000) // e_entry
	binary.LittleEndian.PutUint64(buf[32:40], ehdrLen)  // e_phoff
	binary.LittleEndian.PutUint16(buf[54:56], phdrLen)  // e_phentsize
	binary.LittleEndian.PutUint16(buf[56:58], 1)        // e_phnum

	ph := buf[ehdrLen : ehdrLen+phdrLen]
	binary.LittleEndian.PutUint32(ph[0:4], ptLoad)
	binary.LittleEndian.PutUint32(ph[4:8], pfRead|pfExecute)
	binary.LittleEndian.PutUint64(ph[8:16], dataOff)
	binary.LittleEndian.PutUint64(ph[16:24], 0x400000)
	binary.LittleEndian.PutUint64(ph[32:40], 4) // p_filesz
	binary.LittleEndian.PutUint64(ph[40:48], 8) // p_memsz

	copy(buf[dataOff:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	return buf
}

func TestParseElfTinyExec(t *testing.T) {
	img := buildTinyExec()
	parsed, err := ParseElf(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Entry != 0x400000 {
		t.Fatalf("entry = 0x%x", parsed.Entry)
	}
	if len(parsed.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(parsed.Segments))
	}
	seg := parsed.Segments[0]
	if seg.VAddr != 0x400000 || seg.MemSize != 8 || seg.FileSize != 4 || seg.Offset != 0x100 {
		t.Fatalf("segment mismatch: %+v", seg)
	}
	want := pagingops.FlagUser | pagingops.FlagRead | pagingops.FlagExecute
	if !seg.Flags.Contains(want) {
		t.Fatalf("flags = %v, want superset of %v", seg.Flags, want)
	}
}

type recordingSink struct {
	calls []string
}

func (s *recordingSink) Map(vaddr, memSize uint64, flags pagingops.Flags) error {
	s.calls = append(s.calls, "map")
	return nil
}

func (s *recordingSink) Copy(vaddr uint64, data []byte) error {
	s.calls = append(s.calls, "copy")
	return nil
}

func (s *recordingSink) Zero(vaddr, size uint64) error {
	s.calls = append(s.calls, "zero")
	return nil
}

func TestLoadElfCallOrder(t *testing.T) {
	img := buildTinyExec()
	parsed, err := ParseElf(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sink := &recordingSink{}
	if err := LoadElf(img, parsed, sink); err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"map", "copy", "zero"}
	if len(sink.calls) != len(want) {
		t.Fatalf("calls = %v", sink.calls)
	}
	for i := range want {
		if sink.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", sink.calls, want)
		}
	}
}

func TestParseElfRejectsShortImage(t *testing.T) {
	if _, err := ParseElf([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short image")
	}
}

func TestParseElfRejectsBadMagic(t *testing.T) {
	img := buildTinyExec()
	img[0] = 0
	if _, err := ParseElf(img); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}
