package wire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder()
	enc.PutU8(1, 7)
	enc.PutU32(2, 0xdeadbeef)
	enc.PutString(3, "hello")

	recs, err := Decode(enc.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	lvl, err := FieldU8(recs[0], "level")
	if err != nil || lvl != 7 {
		t.Fatalf("level: %v %v", lvl, err)
	}
	pid, err := FieldU32(recs[1], "pid")
	if err != nil || pid != 0xdeadbeef {
		t.Fatalf("pid: %v %v", pid, err)
	}
	msg, err := FieldString(recs[2], "message")
	if err != nil || msg != "hello" {
		t.Fatalf("message: %q %v", msg, err)
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{1, 0, 2})
	pe, ok := err.(*ProtocolError)
	if !ok || pe.Kind != TruncatedHeader {
		t.Fatalf("expected TruncatedHeader, got %v", err)
	}
}

func TestDecodeTruncatedValue(t *testing.T) {
	_, err := Decode([]byte{1, 0, 5, 0, 'h', 'i'})
	pe, ok := err.(*ProtocolError)
	if !ok || pe.Kind != TruncatedValue {
		t.Fatalf("expected TruncatedValue, got %v", err)
	}
}

func TestFieldInvalidLength(t *testing.T) {
	rec := Record{Type: 2, Value: []byte{1, 2}}
	if _, err := FieldU32(rec, "pid"); err == nil {
		t.Fatalf("expected error for short u32 field")
	}
}

func TestFieldInvalidUtf8(t *testing.T) {
	rec := Record{Type: 3, Value: []byte{0xff, 0xfe}}
	if _, err := FieldString(rec, "message"); err == nil {
		t.Fatalf("expected InvalidUtf8")
	}
}
