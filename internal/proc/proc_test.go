package proc

import (
	"testing"

	"github.com/tinyrange/ruzzle/internal/capset"
)

func TestCapTransferThenSendClearsPending(t *testing.T) {
	p := New(1, 0x1000)
	p.Caps = p.Caps.Insert(capset.EndpointCreate).Insert(capset.ConsoleWrite)

	handle, err := p.EndpointCreate()
	if err != nil {
		t.Fatalf("endpoint create: %v", err)
	}
	if err := p.CapTransfer(capset.ConsoleWrite); err != nil {
		t.Fatalf("cap transfer: %v", err)
	}
	if err := p.Send(handle, []byte("ok")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if p.PendingCap() != nil {
		t.Fatalf("expected pending cap cleared after send")
	}

	buf := make([]byte, 8)
	n, cap, err := p.Recv(handle, buf)
	if err != nil || string(buf[:n]) != "ok" || cap == nil || *cap != capset.ConsoleWrite {
		t.Fatalf("recv: n=%d err=%v cap=%v", n, err, cap)
	}
}

func TestSchedulerRoundRobin(t *testing.T) {
	s := NewScheduler()
	s.PushReady(1)
	s.PushReady(2)
	s.PushReady(3)

	first, ok := s.ScheduleNext()
	if !ok || first != 1 {
		t.Fatalf("expected pid 1, got %d ok=%v", first, ok)
	}
	second, ok := s.ScheduleNext()
	if !ok || second != 2 {
		t.Fatalf("expected pid 2, got %d ok=%v", second, ok)
	}
}

func TestSchedulerBlockCurrent(t *testing.T) {
	s := NewScheduler()
	s.PushReady(1)
	s.ScheduleNext()
	s.BlockCurrent()
	if _, ok := s.Current(); ok {
		t.Fatalf("expected no current after block")
	}
	if s.ReadyLen() != 0 {
		t.Fatalf("blocked pid should not be re-enqueued")
	}
}
