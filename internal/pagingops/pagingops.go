// Package pagingops defines the VMM façade: a thin wrapper binding an
// AddressSpace to a per-architecture PagingOps capability trait. The
// façade forwards every call and owns no page-table memory of its own.
package pagingops

import "github.com/tinyrange/ruzzle/internal/kernerr"

// Flags is a bitset over the page permission classes.
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagExecute
	FlagUser
)

// Contains reports whether f has every bit set in other.
func (f Flags) Contains(other Flags) bool { return f&other == other }

// Union returns the bitwise union of f and other.
func (f Flags) Union(other Flags) Flags { return f | other }

// PagingOps is the capability trait an architecture implementation (or a
// test double) supplies to the VMM façade.
type PagingOps interface {
	Map(root, va, pa uint64, flags Flags) error
	Unmap(root, va uint64) error
	SwitchAS(root uint64) error
}

// AddressSpace holds the physical address of a top-level page table.
type AddressSpace struct {
	Root uint64
}

// VMM binds an AddressSpace to a PagingOps implementation.
type VMM struct {
	ops PagingOps
}

// New returns a VMM façade over the given PagingOps implementation.
func New(ops PagingOps) *VMM {
	return &VMM{ops: ops}
}

// Map forwards to the underlying PagingOps.Map. Unimplemented is a legal
// result (e.g. from the aarch64 stub) and must be handled by the caller.
func (v *VMM) Map(as *AddressSpace, va, pa uint64, flags Flags) error {
	if v.ops == nil {
		return kernerr.Unimplemented
	}
	return v.ops.Map(as.Root, va, pa, flags)
}

// Unmap forwards to the underlying PagingOps.Unmap.
func (v *VMM) Unmap(as *AddressSpace, va uint64) error {
	if v.ops == nil {
		return kernerr.Unimplemented
	}
	return v.ops.Unmap(as.Root, va)
}

// SwitchAS forwards to the underlying PagingOps.SwitchAS.
func (v *VMM) SwitchAS(as *AddressSpace) error {
	if v.ops == nil {
		return kernerr.Unimplemented
	}
	return v.ops.SwitchAS(as.Root)
}
