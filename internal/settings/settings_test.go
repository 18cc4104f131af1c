package settings

import "testing"

func TestApplyValidSettings(t *testing.T) {
	var s System
	if err := s.Apply("ruzzlebox", "en_US.UTF-8", "UTC", "us"); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func TestApplyRejectsLeadingSlashTimezone(t *testing.T) {
	var s System
	if err := s.Apply("ruzzlebox", "en_US", "/UTC", "us"); err == nil {
		t.Fatalf("expected error for leading-slash timezone")
	}
}

func TestConfigTextFieldOrder(t *testing.T) {
	s := System{Hostname: "h", Locale: "l", Timezone: "t", Keyboard: "k"}
	want := "hostname=h\nlocale=l\ntimezone=t\nkeyboard=k\n"
	if got := s.ConfigText(); got != want {
		t.Fatalf("config text = %q, want %q", got, want)
	}
}
