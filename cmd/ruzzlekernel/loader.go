package main

import (
	"fmt"

	"github.com/tinyrange/ruzzle/internal/elfload"
	"github.com/tinyrange/ruzzle/internal/pagingops"
	"github.com/tinyrange/ruzzle/internal/pmm"
)

// simPaging is a minimal PagingOps implementation: it just remembers which
// virtual pages are mapped to which physical frames, standing in for a
// real architecture page-table walker.
type simPaging struct {
	mapped map[uint64]uint64 // va page -> pa page, keyed by (root, va)
}

func newSimPaging() *simPaging {
	return &simPaging{mapped: make(map[uint64]uint64)}
}

func (p *simPaging) key(root, va uint64) uint64 {
	page := va &^ uint64(pmm.FrameSize-1)
	return root ^ page
}

func (p *simPaging) Map(root, va, pa uint64, flags pagingops.Flags) error {
	p.mapped[p.key(root, va)] = pa
	return nil
}

func (p *simPaging) Unmap(root, va uint64) error {
	delete(p.mapped, p.key(root, va))
	return nil
}

func (p *simPaging) SwitchAS(root uint64) error { return nil }

// moduleLoader implements elfload.Sink by allocating physical frames from
// a pmm.Allocator, mapping them through a pagingops.VMM, and replaying the
// segment's bytes into a simulated physical address space backed by a
// plain Go byte slice.
type moduleLoader struct {
	vmm      *pagingops.VMM
	ops      *simPaging
	as       *pagingops.AddressSpace
	alloc    *pmm.Allocator
	physMem  []byte
	physBase uint64
}

func (m *moduleLoader) Map(vaddr, memSize uint64, flags pagingops.Flags) error {
	pages := (memSize + pmm.FrameSize - 1) / pmm.FrameSize
	for i := uint64(0); i < pages; i++ {
		va := vaddr + i*pmm.FrameSize
		pa, err := m.alloc.AllocFrame()
		if err != nil {
			return fmt.Errorf("loader: allocate frame for 0x%x: %w", va, err)
		}
		if err := m.vmm.Map(m.as, va, pa, flags); err != nil {
			return fmt.Errorf("loader: map 0x%x: %w", va, err)
		}
	}
	return nil
}

// resolve translates a virtual address into an offset into physMem via
// the pages the prior Map call established.
func (m *moduleLoader) resolve(va uint64) (int, error) {
	page := va &^ uint64(pmm.FrameSize-1)
	pa, ok := m.ops.mapped[m.ops.key(m.as.Root, page)]
	if !ok {
		return 0, fmt.Errorf("loader: 0x%x is not mapped", va)
	}
	offset := pa - m.physBase + (va - page)
	if offset >= uint64(len(m.physMem)) {
		return 0, fmt.Errorf("loader: 0x%x resolves outside simulated memory", va)
	}
	return int(offset), nil
}

func (m *moduleLoader) Copy(vaddr uint64, data []byte) error {
	for i, b := range data {
		off, err := m.resolve(vaddr + uint64(i))
		if err != nil {
			return err
		}
		m.physMem[off] = b
	}
	return nil
}

func (m *moduleLoader) Zero(vaddr, size uint64) error {
	for i := uint64(0); i < size; i++ {
		off, err := m.resolve(vaddr + i)
		if err != nil {
			return err
		}
		m.physMem[off] = 0
	}
	return nil
}

var _ elfload.Sink = (*moduleLoader)(nil)

// loadModuleImage parses image as an ELF64 binary and replays its PT_LOAD
// segments into a fresh address space backed by alloc/physMem, returning
// the parsed entry point.
func loadModuleImage(vmm *pagingops.VMM, ops *simPaging, as *pagingops.AddressSpace, alloc *pmm.Allocator, physMem []byte, physBase uint64, image []byte) (*elfload.LoadedElf, error) {
	parsed, err := elfload.ParseElf(image)
	if err != nil {
		return nil, fmt.Errorf("loader: parse elf: %w", err)
	}
	loader := &moduleLoader{vmm: vmm, ops: ops, as: as, alloc: alloc, physMem: physMem, physBase: physBase}
	if err := elfload.LoadElf(image, parsed, loader); err != nil {
		return nil, fmt.Errorf("loader: load elf: %w", err)
	}
	return parsed, nil
}
