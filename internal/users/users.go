// Package users implements user accounts and the active-session tracking
// supplemented from the original service (set_active/active_user/logout)
// that the distilled spec left as an implicit "create the admin user"
// step.
package users

import (
	"fmt"
	"regexp"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

var nameRe = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidName reports whether name matches [a-z0-9-]+.
func ValidName(name string) bool { return name != "" && nameRe.MatchString(name) }

// Record is one user account.
type Record struct {
	Name    string
	IsAdmin bool
	HomeDir string
	Shell   string
}

// NewRecord builds a Record with the derived home directory and default
// shell.
func NewRecord(name string, isAdmin bool) *Record {
	return &Record{
		Name:    name,
		IsAdmin: isAdmin,
		HomeDir: "/home/" + name,
		Shell:   "/bin/ruzzle-shell",
	}
}

// Manager holds the set of known users and which one (if any) is the
// active session.
type Manager struct {
	order  []string
	byName map[string]*Record
	active string
}

// NewManager returns an empty user manager with no active session.
func NewManager() *Manager {
	return &Manager{byName: make(map[string]*Record)}
}

// CreateUser validates name and inserts a new record, rejecting a
// duplicate name or an invalid name.
func (m *Manager) CreateUser(name string, isAdmin bool) (*Record, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("users: invalid user name %q: %w", name, kernerr.InvalidArg)
	}
	if _, exists := m.byName[name]; exists {
		return nil, fmt.Errorf("users: user %q already exists: %w", name, kernerr.InvalidArg)
	}
	rec := NewRecord(name, isAdmin)
	m.byName[name] = rec
	m.order = append(m.order, name)
	return rec, nil
}

// User looks up a user by name.
func (m *Manager) User(name string) (*Record, error) {
	rec, ok := m.byName[name]
	if !ok {
		return nil, kernerr.NotFound
	}
	return rec, nil
}

// List returns every user in creation order.
func (m *Manager) List() []*Record {
	out := make([]*Record, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.byName[name])
	}
	return out
}

// SetActive marks name as the active session user, requiring the user to
// exist.
func (m *Manager) SetActive(name string) error {
	if _, ok := m.byName[name]; !ok {
		return kernerr.NotFound
	}
	m.active = name
	return nil
}

// ActiveUser returns the active session's record, or nil if no session
// is active.
func (m *Manager) ActiveUser() *Record {
	if m.active == "" {
		return nil
	}
	return m.byName[m.active]
}

// Logout clears the active session.
func (m *Manager) Logout() {
	m.active = ""
}
