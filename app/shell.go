package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/fedshell/domain/mount"
)

// ErrUnknownSlot is returned for slots the page does not define.
var ErrUnknownSlot = errors.New("unknown slot")

// SlotBinding assigns a remote to a named slot of the host page.
type SlotBinding struct {
	Slot   string
	Remote string
}

// SlotView describes a slot for listing.
type SlotView struct {
	Slot    string      `json:"slot"`
	Remote  string      `json:"remote"`
	State   mount.State `json:"state"`
	Mounted bool        `json:"mounted"`
}

// Shell is the host page: an ordered set of slots, each with its controller.
type Shell struct {
	mu          sync.RWMutex
	order       []string
	bindings    map[string]string
	controllers map[string]*MountController
	deps        MountDeps
}

// NewShell creates the page layout from bindings.
func NewShell(bindings []SlotBinding, deps MountDeps) (*Shell, error) {
	s := &Shell{
		bindings:    make(map[string]string, len(bindings)),
		controllers: make(map[string]*MountController, len(bindings)),
		deps:        deps,
	}
	for _, b := range bindings {
		if b.Slot == "" {
			return nil, fmt.Errorf("slot binding for %q: empty slot name", b.Remote)
		}
		if _, dup := s.bindings[b.Slot]; dup {
			return nil, fmt.Errorf("duplicate slot %q", b.Slot)
		}
		s.order = append(s.order, b.Slot)
		s.bindings[b.Slot] = b.Remote
		s.controllers[b.Slot] = NewMountController(mount.NewSlot(b.Slot), deps)
	}
	return s, nil
}

// Controller returns the controller of a slot.
func (s *Shell) Controller(slot string) (*MountController, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.controllers[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	return c, nil
}

// Mount mounts remoteName into slot. An empty name uses the configured binding.
func (s *Shell) Mount(ctx context.Context, slot, remoteName string) (<-chan struct{}, error) {
	c, err := s.Controller(slot)
	if err != nil {
		return nil, err
	}
	if remoteName == "" {
		s.mu.RLock()
		remoteName = s.bindings[slot]
		s.mu.RUnlock()
	} else {
		s.mu.Lock()
		s.bindings[slot] = remoteName
		s.mu.Unlock()
	}
	return c.Mount(ctx, remoteName), nil
}

// MountAll mounts every slot and waits for all attempts to settle.
func (s *Shell) MountAll(ctx context.Context) {
	var pending []<-chan struct{}
	for _, slot := range s.Slots() {
		done, err := s.Mount(ctx, slot, "")
		if err == nil {
			pending = append(pending, done)
		}
	}
	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
}

// Slots returns slot names in page order.
func (s *Shell) Slots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// View describes one slot.
func (s *Shell) View(slot string) (SlotView, error) {
	c, err := s.Controller(slot)
	if err != nil {
		return SlotView{}, err
	}
	state, mounted := c.State()
	s.mu.RLock()
	remoteName := s.bindings[slot]
	s.mu.RUnlock()
	return SlotView{Slot: slot, Remote: remoteName, State: state, Mounted: mounted}, nil
}

// Views describes every slot in page order.
func (s *Shell) Views() []SlotView {
	slots := s.Slots()
	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		if v, err := s.View(slot); err == nil {
			views = append(views, v)
		}
	}
	return views
}

// Remotes returns the distinct remotes bound to slots, sorted.
func (s *Shell) Remotes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.bindings {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}
