package smp

import "testing"

func TestDistributeRoundRobin(t *testing.T) {
	top := New(3)
	top.SetState(0, Online)
	top.SetState(2, Online)

	assignment := top.Distribute(4)
	want := []int{0, 2, 0, 2}
	if len(assignment) != len(want) {
		t.Fatalf("assignment = %v", assignment)
	}
	for i := range want {
		if assignment[i] != want[i] {
			t.Fatalf("assignment = %v, want %v", assignment, want)
		}
	}
	load0, _ := top.Load(0)
	if load0 != 2 {
		t.Fatalf("core 0 load = %d, want 2", load0)
	}
}

func TestDistributeNoOnlineCores(t *testing.T) {
	top := New(2)
	if got := top.Distribute(3); got != nil {
		t.Fatalf("expected nil assignment, got %v", got)
	}
}

func TestLeastLoadedOnlineTieBreak(t *testing.T) {
	top := New(3)
	top.SetState(1, Online)
	top.SetState(2, Online)
	id, ok := top.LeastLoadedOnline()
	if !ok || id != 1 {
		t.Fatalf("expected core 1, got %d ok=%v", id, ok)
	}
}

func TestAddLoadRejectsOfflineCore(t *testing.T) {
	top := New(1)
	if err := top.AddLoad(0, 1); err == nil {
		t.Fatalf("expected error adding load to offline core")
	}
}
