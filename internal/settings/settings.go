// Package settings models SystemSettings: the four first-boot fields
// (hostname, locale, timezone, keyboard) and their individual validators.
package settings

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

var (
	hostnameLabelRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
	localeRe        = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)
	timezoneRe      = regexp.MustCompile(`^[A-Za-z0-9/_+-]+$`)
	keyboardRe      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ValidHostname reports whether v is a sequence of DNS-ish labels (each
// ≤63 chars) separated by '.'.
func ValidHostname(v string) bool {
	if v == "" {
		return false
	}
	for _, label := range strings.Split(v, ".") {
		if !hostnameLabelRe.MatchString(label) {
			return false
		}
	}
	return true
}

// ValidLocale reports whether v uses only [A-Za-z0-9_.@-].
func ValidLocale(v string) bool { return v != "" && localeRe.MatchString(v) }

// ValidTimezone reports whether v uses only [A-Za-z0-9/_+-] without a
// leading or trailing '/'.
func ValidTimezone(v string) bool {
	if v == "" || strings.HasPrefix(v, "/") || strings.HasSuffix(v, "/") {
		return false
	}
	return timezoneRe.MatchString(v)
}

// ValidKeyboard reports whether v uses only [A-Za-z0-9_-].
func ValidKeyboard(v string) bool { return v != "" && keyboardRe.MatchString(v) }

// System is the first-boot system settings, in the stable persisted
// field order hostname, locale, timezone, keyboard.
type System struct {
	Hostname string
	Locale   string
	Timezone string
	Keyboard string
}

// Apply validates and sets every field, returning InvalidArg for the
// first field that fails its own validator.
func (s *System) Apply(hostname, locale, timezone, keyboard string) error {
	if !ValidHostname(hostname) {
		return fmt.Errorf("settings: invalid hostname %q: %w", hostname, kernerr.InvalidArg)
	}
	if !ValidLocale(locale) {
		return fmt.Errorf("settings: invalid locale %q: %w", locale, kernerr.InvalidArg)
	}
	if !ValidTimezone(timezone) {
		return fmt.Errorf("settings: invalid timezone %q: %w", timezone, kernerr.InvalidArg)
	}
	if !ValidKeyboard(keyboard) {
		return fmt.Errorf("settings: invalid keyboard %q: %w", keyboard, kernerr.InvalidArg)
	}
	s.Hostname = hostname
	s.Locale = locale
	s.Timezone = timezone
	s.Keyboard = keyboard
	return nil
}

// ConfigText renders the settings as the "key=value\n" lines persisted to
// /etc/ruzzle.conf, in the stable field order.
func (s *System) ConfigText() string {
	return fmt.Sprintf("hostname=%s\nlocale=%s\ntimezone=%s\nkeyboard=%s\n",
		s.Hostname, s.Locale, s.Timezone, s.Keyboard)
}
