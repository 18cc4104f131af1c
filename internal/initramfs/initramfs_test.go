package initramfs

import (
	"reflect"
	"testing"
)

func TestParseBuildRoundTrip(t *testing.T) {
	entries := []Entry{
		{Name: "init", Data: []byte{1, 2, 3, 4}},
		{Name: "console-service", Data: []byte{0xCA, 0xFE}},
	}
	img := Build(entries)
	got, err := Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, entries)
	}
}

func TestParsePreservesOrder(t *testing.T) {
	entries := []Entry{
		{Name: "b", Data: []byte("two")},
		{Name: "a", Data: []byte("one")},
	}
	got, err := Parse(Build(entries))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[0].Name != "b" || got[1].Name != "a" {
		t.Fatalf("entry order not preserved: %+v", got)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	img := Build(nil)
	img[0] = 'X'
	if _, err := Parse(img); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestParseRejectsTruncatedTail(t *testing.T) {
	img := Build([]Entry{{Name: "init", Data: []byte{1, 2, 3, 4}}})
	truncated := img[:len(img)-2]
	if _, err := Parse(truncated); err == nil {
		t.Fatalf("expected error for truncated image")
	}
}
