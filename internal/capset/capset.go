// Package capset implements the capability bitset and the pure,
// permission-checking syscall dispatch function that gates the v0.1
// kernel ABI.
package capset

import "github.com/tinyrange/ruzzle/internal/kernerr"

// Capability is a closed, 0-based ordinal set of named privileges.
type Capability uint

const (
	ConsoleWrite Capability = iota
	EndpointCreate
	ShmCreate
	ProcessSpawn
	Timer
	FsRoot
	WindowServer
	InputDevice
	GpuDevice

	numCapabilities
)

// Set is a 32-bit bitset of Capability values.
type Set uint32

// Empty returns a Set with no capabilities.
func Empty() Set { return 0 }

// All returns a Set with every known capability.
func All() Set {
	var s Set
	for c := Capability(0); c < numCapabilities; c++ {
		s = s.Insert(c)
	}
	return s
}

// Insert returns s with c added.
func (s Set) Insert(c Capability) Set { return s | (1 << c) }

// Remove returns s with c cleared.
func (s Set) Remove(c Capability) Set { return s &^ (1 << c) }

// Contains reports whether s holds c.
func (s Set) Contains(c Capability) bool { return s&(1<<c) != 0 }

// IsEmpty reports whether s holds no capabilities.
func (s Set) IsEmpty() bool { return s == 0 }

// Syscall enumerates the v0.1 kernel ABI.
type Syscall int

const (
	Spawn Syscall = iota
	Exit
	Wait
	Yield
	Sleep
	Mmap
	Munmap
	ShmCreateSyscall
	ShmMap
	ShmShare
	EndpointCreateSyscall
	EndpointConnect
	Send
	Recv
	CapTransfer
	DebugLog
	TimeNowNs
)

// requiredCap maps a syscall to the capability it requires; syscalls
// absent from this table require none.
var requiredCap = map[Syscall]Capability{
	Spawn:                 ProcessSpawn,
	EndpointCreateSyscall: EndpointCreate,
	ShmCreateSyscall:      ShmCreate,
	Sleep:                 Timer,
	TimeNowNs:             Timer,
	DebugLog:              ConsoleWrite,
}

// Result is the outcome of a successful dispatch: either Unit or a
// scalar Value (only ever produced by TimeNowNs today).
type Result struct {
	Value   uint64
	HasValu bool
}

// Dispatch evaluates the pure permission-check gate for one syscall. It is
// not an executor: real side effects are layered in by callers once the
// gate passes.
func Dispatch(sc Syscall, caps Set, transferCap *Capability) (Result, error) {
	if need, ok := requiredCap[sc]; ok && !caps.Contains(need) {
		return Result{}, kernerr.NoPerm
	}

	if sc == CapTransfer {
		if transferCap == nil {
			return Result{}, kernerr.InvalidArg
		}
		if !caps.Contains(*transferCap) {
			return Result{}, kernerr.NoPerm
		}
		return Result{}, nil
	}

	if sc == TimeNowNs {
		return Result{Value: 0, HasValu: true}, nil
	}

	return Result{}, nil
}
