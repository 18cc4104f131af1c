package shellwire

import "testing"

func TestCommandRoundTrip(t *testing.T) {
	buf := NewCommand(OpLs).Path("/etc").FlagBits(FlagRecursive).Bytes()
	cmd, err := DecodeCommand(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Op != OpLs || cmd.Path != "/etc" || cmd.Flags != FlagRecursive {
		t.Fatalf("cmd = %+v", cmd)
	}
}

func TestResponseRejectsEmptyText(t *testing.T) {
	buf := EncodeResponse(StatusOk, "")
	if _, err := DecodeResponse(buf); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	buf := EncodeResponse(StatusFailed, "no such module")
	resp, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != StatusFailed || resp.Text != "no such module" {
		t.Fatalf("resp = %+v", resp)
	}
}
