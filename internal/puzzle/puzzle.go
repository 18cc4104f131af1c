// Package puzzle implements the puzzle-board slot manager: an ordered set
// of named extension points that modules plug into under compatibility
// and exclusivity rules.
package puzzle

import (
	"fmt"

	"github.com/tinyrange/ruzzle/internal/kernerr"
)

// Slot is one named extension point on the board.
type Slot struct {
	Name     string
	Required bool
	Provider string // empty means unfilled
}

// Board is the ordered set of slots, keyed by name but iterated in
// insertion order.
type Board struct {
	order []string
	slots map[string]*Slot
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{slots: make(map[string]*Slot)}
}

// AddSlot registers a new, unfilled slot in board order.
func (b *Board) AddSlot(name string, required bool) error {
	if _, exists := b.slots[name]; exists {
		return fmt.Errorf("puzzle: slot %q already exists: %w", name, kernerr.InvalidArg)
	}
	b.slots[name] = &Slot{Name: name, Required: required}
	b.order = append(b.order, name)
	return nil
}

// contains reports whether list holds needle.
func contains(list []string, needle string) bool {
	for _, v := range list {
		if v == needle {
			return true
		}
	}
	return false
}

// Plug fills slot with module, requiring slot to be in moduleSlots
// (compatibility) and currently empty.
func (b *Board) Plug(slot, module string, moduleSlots []string) error {
	s, ok := b.slots[slot]
	if !ok {
		return fmt.Errorf("puzzle: slot %q: %w", slot, kernerr.NotFound)
	}
	if !contains(moduleSlots, slot) {
		return fmt.Errorf("puzzle: module %q does not support slot %q: %w", module, slot, kernerr.InvalidArg)
	}
	if s.Provider != "" {
		return fmt.Errorf("puzzle: slot %q already filled: %w", slot, kernerr.InvalidArg)
	}
	s.Provider = module
	return nil
}

// Unplug clears slot and returns its former provider, or "" if it was
// already empty.
func (b *Board) Unplug(slot string) (string, error) {
	s, ok := b.slots[slot]
	if !ok {
		return "", fmt.Errorf("puzzle: slot %q: %w", slot, kernerr.NotFound)
	}
	prev := s.Provider
	s.Provider = ""
	return prev, nil
}

// MarkRunning idempotently fills every slot in moduleSlots that is
// currently empty with module, never overwriting an existing provider.
func (b *Board) MarkRunning(module string, moduleSlots []string) {
	for _, name := range moduleSlots {
		s, ok := b.slots[name]
		if !ok {
			continue
		}
		if s.Provider == "" {
			s.Provider = module
		}
	}
}

// ProviderFor returns the current provider of slot, or "" if unfilled.
func (b *Board) ProviderFor(slot string) (string, error) {
	s, ok := b.slots[slot]
	if !ok {
		return "", fmt.Errorf("puzzle: slot %q: %w", slot, kernerr.NotFound)
	}
	return s.Provider, nil
}

// IsComplete reports whether every required slot has a provider.
func (b *Board) IsComplete() bool {
	for _, name := range b.order {
		s := b.slots[name]
		if s.Required && s.Provider == "" {
			return false
		}
	}
	return true
}

// MissingRequired enumerates the unfilled required slots in board order.
func (b *Board) MissingRequired() []string {
	var out []string
	for _, name := range b.order {
		s := b.slots[name]
		if s.Required && s.Provider == "" {
			out = append(out, name)
		}
	}
	return out
}
