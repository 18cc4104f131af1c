// Package smp tracks per-core SMP topology: online/offline/halted state,
// a monotonic load counter per core, and round-robin task distribution
// over the online set.
package smp

import (
	"math"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

// CoreState is the lifecycle state of one core.
type CoreState int

const (
	Offline CoreState = iota
	Online
	Halted
)

type core struct {
	state CoreState
	load  uint64
}

// Topology is a fixed-size array of cores.
type Topology struct {
	cores []core
}

// New returns a Topology with n cores, all Offline with zero load.
func New(n int) *Topology {
	return &Topology{cores: make([]core, n)}
}

// Len returns the number of cores.
func (t *Topology) Len() int { return len(t.cores) }

func (t *Topology) valid(id int) bool { return id >= 0 && id < len(t.cores) }

// SetState transitions core id to s, gated by id validity.
func (t *Topology) SetState(id int, s CoreState) error {
	if !t.valid(id) {
		return kernerr.InvalidArg
	}
	t.cores[id].state = s
	return nil
}

// State returns the state of core id.
func (t *Topology) State(id int) (CoreState, error) {
	if !t.valid(id) {
		return Offline, kernerr.InvalidArg
	}
	return t.cores[id].state, nil
}

// AddLoad adds n to core id's load counter, saturating on overflow. Only
// permitted for Online cores; others return kernerr.NoPerm, whether the
// core is Offline or Halted.
func (t *Topology) AddLoad(id int, n uint64) error {
	if !t.valid(id) {
		return kernerr.InvalidArg
	}
	if t.cores[id].state != Online {
		return kernerr.NoPerm
	}
	cur := t.cores[id].load
	if cur > math.MaxUint64-n {
		t.cores[id].load = math.MaxUint64
	} else {
		t.cores[id].load = cur + n
	}
	return nil
}

// Load returns core id's current load.
func (t *Topology) Load(id int) (uint64, error) {
	if !t.valid(id) {
		return 0, kernerr.InvalidArg
	}
	return t.cores[id].load, nil
}

// LeastLoadedOnline returns the id of the online core with the smallest
// load, breaking ties by lowest id. The second return is false if no core
// is online.
func (t *Topology) LeastLoadedOnline() (int, bool) {
	best := -1
	var bestLoad uint64
	for id, c := range t.cores {
		if c.state != Online {
			continue
		}
		if best == -1 || c.load < bestLoad {
			best = id
			bestLoad = c.load
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// onlineIDs returns the online core ids in ascending order.
func (t *Topology) onlineIDs() []int {
	var ids []int
	for id, c := range t.cores {
		if c.state == Online {
			ids = append(ids, id)
		}
	}
	return ids
}

// Distribute assigns n tasks round-robin over the current online set (in
// id order), adding one unit of load per assignment. Returns an empty
// assignment if there is no online core or n == 0.
func (t *Topology) Distribute(n int) []int {
	ids := t.onlineIDs()
	if len(ids) == 0 || n == 0 {
		return nil
	}
	assignment := make([]int, 0, n)
	for i := 0; i < n; i++ {
		id := ids[i%len(ids)]
		assignment = append(assignment, id)
		t.cores[id].load++
	}
	return assignment
}

// OnlineCount reports how many cores are currently Online, used by sysinfo.
func (t *Topology) OnlineCount() int {
	return len(t.onlineIDs())
}
