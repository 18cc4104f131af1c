package setup

import (
	"strings"
	"testing"

	"github.com/tinyrange/ruzzle/internal/rzfs"
	"github.com/tinyrange/ruzzle/internal/settings"
	"github.com/tinyrange/ruzzle/internal/users"
)

func TestRunFirstBootHappyPath(t *testing.T) {
	fs := rzfs.New()
	sys := &settings.System{}
	um := users.NewManager()

	plan := Plan{
		Username: "admin",
		IsAdmin:  true,
		Hostname: "ruzzlebox",
		Locale:   "en_US.UTF-8",
		Timezone: "America/New_York",
		Keyboard: "us",
	}

	report, err := RunFirstBoot(fs, sys, um, plan)
	if err != nil {
		t.Fatalf("run first boot: %v", err)
	}
	if report.User == nil || report.User.Name != "admin" {
		t.Fatalf("expected admin user created, got %+v", report.User)
	}

	conf, err := fs.ReadFile("/etc/ruzzle.conf")
	if err != nil {
		t.Fatalf("read ruzzle.conf: %v", err)
	}
	if !strings.HasPrefix(string(conf), "hostname=ruzzlebox\n") {
		t.Fatalf("conf = %q", conf)
	}

	if _, err := fs.ListDir("/home/admin/docs"); err != nil {
		t.Fatalf("expected home subdirectories created: %v", err)
	}
}

func TestRunFirstBootRejectsInvalidHostname(t *testing.T) {
	fs := rzfs.New()
	sys := &settings.System{}
	um := users.NewManager()

	plan := Plan{Username: "admin", Hostname: "bad_host!", Locale: "en_US", Timezone: "UTC", Keyboard: "us"}
	if _, err := RunFirstBoot(fs, sys, um, plan); err == nil {
		t.Fatalf("expected error for invalid hostname")
	}
}
