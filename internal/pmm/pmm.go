// Package pmm implements the physical frame allocator: a free-list of
// 4 KiB frames built from the boot info's usable memory regions.
package pmm

import "github.com/tinyrange/ruzzle/internal/kernerr"

// FrameSize is the fixed physical frame size in bytes.
const FrameSize = 4096

// Allocator is a bag of free 4 KiB frames. It performs no coalescing and
// has no NUMA awareness; callers must serialize access externally.
type Allocator struct {
	free []uint64 // physical frame base addresses, LIFO
}

// New returns an empty Allocator.
func New() *Allocator {
	return &Allocator{}
}

// InitFromRegion aligns start up and end down to FrameSize and pushes every
// resulting frame onto the free list in ascending address order.
func (a *Allocator) InitFromRegion(start, end uint64) {
	start = alignUp(start, FrameSize)
	end = alignDown(end, FrameSize)
	for addr := start; addr+FrameSize <= end; addr += FrameSize {
		a.free = append(a.free, addr)
	}
}

// AllocFrame pops the most recently added frame (LIFO, cache-warm
// preference) or returns NoMem if the free list is empty.
func (a *Allocator) AllocFrame() (uint64, error) {
	if len(a.free) == 0 {
		return 0, kernerr.NoMem
	}
	n := len(a.free) - 1
	frame := a.free[n]
	a.free = a.free[:n]
	return frame, nil
}

// FreeFrame pushes a frame back onto the free list.
func (a *Allocator) FreeFrame(frame uint64) {
	a.free = append(a.free, frame)
}

// FreeCount returns the number of frames currently available.
func (a *Allocator) FreeCount() int {
	return len(a.free)
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

func alignDown(v, align uint64) uint64 {
	return v &^ (align - 1)
}
