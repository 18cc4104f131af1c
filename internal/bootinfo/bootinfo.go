// Package bootinfo models the boot-time contract handed to the core by the
// platform bring-up layer (Limine-like on x86_64, flattened device tree on
// AArch64): the memory map, kernel image extents, and optional initramfs,
// framebuffer, and DTB pointers.
package bootinfo

import "fmt"

// RegionKind classifies a memory map entry.
type RegionKind int

const (
	Usable RegionKind = iota
	Reserved
	Mmio
)

// Region is one entry of the boot memory map: a half-open [Start, End)
// physical address range.
type Region struct {
	Start uint64
	End   uint64
	Kind  RegionKind
}

// Len returns the byte length of the region.
func (r Region) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Range describes a half-open [Start, End) physical address range.
type Range struct {
	Start uint64
	End   uint64
}

// Framebuffer describes an optional linear framebuffer handed over by the
// bootloader; the core never draws to it, it only threads the pointer
// through to the external display collaborator.
type Framebuffer struct {
	Addr   uint64
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint8
}

// Info is the typed boot information contract.
type Info struct {
	MemoryMap   []Region
	KernelStart uint64
	KernelEnd   uint64
	Initramfs   *Range
	Framebuffer *Framebuffer
	DTB         *uint64
}

// Validate checks the invariant kernel_start <= kernel_end and, if present,
// that the initramfs range is well-formed and lies within some region of
// the memory map.
func (i *Info) Validate() error {
	if i.KernelStart > i.KernelEnd {
		return fmt.Errorf("bootinfo: kernel_start 0x%x > kernel_end 0x%x", i.KernelStart, i.KernelEnd)
	}
	if i.Initramfs != nil {
		rng := i.Initramfs
		if rng.Start > rng.End {
			return fmt.Errorf("bootinfo: initramfs range start 0x%x > end 0x%x", rng.Start, rng.End)
		}
		contained := false
		for _, region := range i.MemoryMap {
			if rng.Start >= region.Start && rng.End <= region.End {
				contained = true
				break
			}
		}
		if !contained {
			return fmt.Errorf("bootinfo: initramfs range 0x%x-0x%x not within any memory region", rng.Start, rng.End)
		}
	}
	return nil
}

// UsableRegions returns every region marked Usable, in memory-map order.
func (i *Info) UsableRegions() []Region {
	var out []Region
	for _, r := range i.MemoryMap {
		if r.Kind == Usable {
			out = append(out, r)
		}
	}
	return out
}
