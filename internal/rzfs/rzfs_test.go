package rzfs

import (
	"errors"
	"testing"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

func TestMkdirAndWriteFile(t *testing.T) {
	fs := New()
	if err := fs.Mkdir("/etc"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := fs.WriteFile("/etc/hostname", []byte("ruzzle")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := fs.ReadFile("/etc/hostname")
	if err != nil || string(got) != "ruzzle" {
		t.Fatalf("read: %q %v", got, err)
	}
}

func TestMkdirFailsOnMissingParent(t *testing.T) {
	fs := New()
	if err := fs.Mkdir("/a/b"); !errors.Is(err, kernerr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMkdirFailsOnExisting(t *testing.T) {
	fs := New()
	fs.Mkdir("/etc")
	if err := fs.Mkdir("/etc"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestWriteFileFailsOnDirTarget(t *testing.T) {
	fs := New()
	fs.Mkdir("/etc")
	if err := fs.WriteFile("/etc", []byte("x")); !errors.Is(err, ErrIsDir) {
		t.Fatalf("expected IsDir, got %v", err)
	}
}

func TestListDirLexicographic(t *testing.T) {
	fs := New()
	fs.Mkdir("/a")
	fs.WriteFile("/a/zeta", []byte("1"))
	fs.WriteFile("/a/alpha", []byte("2"))
	names, err := fs.ListDir("/a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("names = %v", names)
	}
}

func TestRemoveNonEmptyDirFails(t *testing.T) {
	fs := New()
	fs.Mkdir("/a")
	fs.WriteFile("/a/f", []byte("x"))
	if err := fs.Remove("/a"); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("expected NotEmpty, got %v", err)
	}
	if err := fs.Remove("/a/f"); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if err := fs.Remove("/a"); err != nil {
		t.Fatalf("remove empty dir: %v", err)
	}
}

func TestStatsSumsChildren(t *testing.T) {
	fs := New()
	fs.Mkdir("/a")
	fs.Mkdir("/a/b")
	fs.WriteFile("/a/f1", []byte("hello"))
	fs.WriteFile("/a/b/f2", []byte("hi"))

	root := fs.Stats()
	a, err := fs.StatsFor("/a")
	if err != nil {
		t.Fatalf("stats for /a: %v", err)
	}
	if root.Files != a.Files || root.Dirs != a.Dirs+1 || root.Bytes != a.Bytes {
		t.Fatalf("root=%+v a=%+v", root, a)
	}
	if a.Files != 2 || a.Dirs != 2 || a.Bytes != 7 {
		t.Fatalf("a stats = %+v", a)
	}
}

func TestPathRejectsDotDot(t *testing.T) {
	fs := New()
	if err := fs.Mkdir("/../etc"); !errors.Is(err, kernerr.InvalidArg) {
		t.Fatalf("expected InvalidArg, got %v", err)
	}
}
