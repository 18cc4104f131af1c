package registrywire

import (
	"testing"

	"github.com/tinyrange/ruzzle/internal/wire"
)

func TestRegisterRoundTrip(t *testing.T) {
	buf := EncodeRegister("ruzzle.console", "console-service")
	req, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.MsgType != Register || req.Service != "ruzzle.console" || req.Module != "console-service" {
		t.Fatalf("req = %+v", req)
	}
}

func TestLookupReplyOkRequiresModule(t *testing.T) {
	buf := EncodeLookupReply(Ok, "console-service")
	resp, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Module != "console-service" {
		t.Fatalf("module = %q", resp.Module)
	}

	// An Ok reply without a module field must be rejected.
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(LookupReply))
	enc.PutU8(fieldStatus, uint8(Ok))
	if _, err := DecodeResponse(enc.Bytes()); err == nil {
		t.Fatalf("expected error for Ok lookup reply without module")
	}
}

func TestLookupReplyErrorRejectsModule(t *testing.T) {
	// EncodeLookupReply never produces this shape; build it by hand to
	// exercise the decoder's rejection path.
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(LookupReply))
	enc.PutU8(fieldStatus, uint8(NotFound))
	enc.PutString(fieldModule, "oops")
	if _, err := DecodeResponse(enc.Bytes()); err == nil {
		t.Fatalf("expected error for module present on error status")
	}
}

func TestListReplyRoundTrip(t *testing.T) {
	entries := []ListEntry{{Service: "ruzzle.console", Module: "console-service"}, {Service: "ruzzle.shell", Module: "shell-service"}}
	buf := EncodeListReply(Ok, entries)
	resp, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.List) != 2 || resp.List[0] != entries[0] || resp.List[1] != entries[1] {
		t.Fatalf("list = %+v", resp.List)
	}
}

func TestDecodeRequestRejectsUnknownType(t *testing.T) {
	malformed := []byte{1, 0, 1, 0, 9}
	if _, err := DecodeRequest(malformed); err == nil {
		t.Fatalf("expected error for unknown msg_type")
	}
}
