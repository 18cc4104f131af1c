// Package proc implements the process control block, its process-scoped
// IPC wrappers, and the single-core round-robin scheduler.
package proc

import (
	"github.com/tinyrange/ruzzle/internal/capset"
	"github.com/tinyrange/ruzzle/internal/ipc"
	"github.com/tinyrange/ruzzle/internal/kernerr"
)

// State is the process lifecycle state.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Exited
)

// Context holds the saved program counter and stack pointer pair. A real
// implementation needs a complete callee-saved register set; this core
// only threads (pc, sp) through, per the scheduler's contract.
type Context struct {
	PC uint64
	SP uint64
}

// PID identifies a process.
type PID uint32

// PCB is the process control block.
type PCB struct {
	PID            PID
	State          State
	Caps           capset.Set
	AddressSpace   uint64 // address-space root
	KernelStackTop uint64
	Ctx            Context
	Endpoints      *ipc.Table
	pendingCap     *capset.Capability
}

// New constructs a PCB with the given pid and address-space root, empty
// capabilities, a zeroed context and kernel stack, an empty endpoint
// table, and no pending capability.
func New(pid PID, asRoot uint64) *PCB {
	return &PCB{
		PID:          pid,
		State:        Ready,
		Caps:         capset.Empty(),
		AddressSpace: asRoot,
		Endpoints:    ipc.NewTable(),
	}
}

// EndpointCreate allocates a new IPC endpoint, requiring EndpointCreate.
func (p *PCB) EndpointCreate() (int, error) {
	if !p.Caps.Contains(capset.EndpointCreate) {
		return 0, kernerr.NoPerm
	}
	return p.Endpoints.Create(), nil
}

// Send transmits payload on handle, consuming any pending transfer
// capability unconditionally (even on failure).
func (p *PCB) Send(handle int, payload []byte) error {
	cap := p.pendingCap
	p.pendingCap = nil

	ep, err := p.Endpoints.Get(handle)
	if err != nil {
		return err
	}
	return ep.Send(payload, cap)
}

// Recv receives from handle into out.
func (p *PCB) Recv(handle int, out []byte) (int, *capset.Capability, error) {
	ep, err := p.Endpoints.Get(handle)
	if err != nil {
		return 0, nil, err
	}
	return ep.Recv(out)
}

// CapTransfer stages cap as the pending transfer capability, iff the
// process already holds it.
func (p *PCB) CapTransfer(cap capset.Capability) error {
	if !p.Caps.Contains(cap) {
		return kernerr.NoPerm
	}
	p.pendingCap = &cap
	return nil
}

// PendingCap returns the currently staged transfer capability, if any.
func (p *PCB) PendingCap() *capset.Capability {
	return p.pendingCap
}

// Scheduler is a work-conserving, single-core round-robin scheduler over
// ready PIDs. It performs no time accounting and no migration.
type Scheduler struct {
	ready   []PID
	current *PID
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// PushReady appends pid to the tail of the ready queue.
func (s *Scheduler) PushReady(pid PID) {
	s.ready = append(s.ready, pid)
}

// ScheduleNext pushes the current pid (if any) onto the tail of ready,
// then pops the head into current, returning it. Returns false if there
// is no PID to schedule.
func (s *Scheduler) ScheduleNext() (PID, bool) {
	if s.current != nil {
		s.ready = append(s.ready, *s.current)
		s.current = nil
	}
	if len(s.ready) == 0 {
		return 0, false
	}
	next := s.ready[0]
	s.ready = s.ready[1:]
	s.current = &next
	return next, true
}

// Current returns the currently running pid, if any.
func (s *Scheduler) Current() (PID, bool) {
	if s.current == nil {
		return 0, false
	}
	return *s.current, true
}

// BlockCurrent clears current without re-enqueueing it.
func (s *Scheduler) BlockCurrent() {
	s.current = nil
}

// ReadyLen reports the depth of the ready queue, used by sysinfo.
func (s *Scheduler) ReadyLen() int {
	return len(s.ready)
}
