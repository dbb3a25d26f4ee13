package mount

import (
	"errors"
	"html/template"
	"sync"
)

// ErrSlotDetached is returned when inserting into a slot that was removed.
var ErrSlotDetached = errors.New("slot detached")

// Slot is a named insertion point in the host page.
// It is safe for concurrent use.
type Slot struct {
	name string

	mu       sync.RWMutex
	content  template.HTML
	inserts  int
	detached bool
}

// NewSlot creates an empty, attached slot.
func NewSlot(name string) *Slot {
	return &Slot{name: name}
}

// Name returns the slot name.
func (s *Slot) Name() string {
	return s.name
}

// Insert replaces the slot content.
func (s *Slot) Insert(content template.HTML) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return ErrSlotDetached
	}
	s.content = content
	s.inserts++
	return nil
}

// Clear removes any content.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = ""
}

// Detach removes the slot from the page. Later inserts fail.
func (s *Slot) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
	s.content = ""
}

// Content returns the current content.
func (s *Slot) Content() template.HTML {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// Detached reports whether the slot was removed.
func (s *Slot) Detached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detached
}

// Inserts returns how many inserts succeeded over the slot's lifetime.
func (s *Slot) Inserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inserts
}
