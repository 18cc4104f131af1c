package capset

import (
	"errors"
	"testing"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

func TestDispatchRequiresCapability(t *testing.T) {
	_, err := Dispatch(DebugLog, Empty(), nil)
	if !errors.Is(err, kernerr.NoPerm) {
		t.Fatalf("expected NoPerm, got %v", err)
	}

	res, err := Dispatch(DebugLog, Empty().Insert(ConsoleWrite), nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.HasValu {
		t.Fatalf("DebugLog should return Unit, got value")
	}
}

func TestDispatchCapTransfer(t *testing.T) {
	cw := ConsoleWrite
	_, err := Dispatch(CapTransfer, Empty().Insert(ConsoleWrite), &cw)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	_, err = Dispatch(CapTransfer, Empty(), &cw)
	if !errors.Is(err, kernerr.NoPerm) {
		t.Fatalf("expected NoPerm without held cap, got %v", err)
	}

	_, err = Dispatch(CapTransfer, Empty().Insert(ConsoleWrite), nil)
	if !errors.Is(err, kernerr.InvalidArg) {
		t.Fatalf("expected InvalidArg for nil transfer cap, got %v", err)
	}
}

func TestDispatchTimeNowNs(t *testing.T) {
	res, err := Dispatch(TimeNowNs, Empty().Insert(Timer), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasValu || res.Value != 0 {
		t.Fatalf("expected value 0, got %+v", res)
	}
}

func TestSetOperations(t *testing.T) {
	s := Empty().Insert(ConsoleWrite).Insert(Timer)
	if !s.Contains(ConsoleWrite) || !s.Contains(Timer) {
		t.Fatalf("expected both caps present")
	}
	s = s.Remove(ConsoleWrite)
	if s.Contains(ConsoleWrite) {
		t.Fatalf("expected ConsoleWrite removed")
	}
	if Empty().IsEmpty() != true {
		t.Fatalf("expected Empty() to be empty")
	}
}
