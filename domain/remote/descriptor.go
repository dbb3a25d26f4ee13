// Package remote provides the pure data model for remotely deployed UI modules.
// Nothing in this package performs I/O.
package remote

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Descriptor identifies a remote and where its manifest lives (value type).
type Descriptor struct {
	Name          string // Logical name, unique per registry (e.g. "mfe-transfers")
	ManifestURL   string // Location of the remote's manifest
	ExposedModule string // Path within the manifest's export table (e.g. "./TransferComponent")
}

// Validate checks that all fields are present.
func (d Descriptor) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	case strings.TrimSpace(d.ManifestURL) == "":
		return fmt.Errorf("%w: remote %q: manifest url is required", ErrInvalidDescriptor, d.Name)
	case strings.TrimSpace(d.ExposedModule) == "":
		return fmt.Errorf("%w: remote %q: exposed module is required", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// Registry errors.
var (
	ErrUnknownRemote     = errors.New("unknown remote")
	ErrDuplicateRemote   = errors.New("duplicate remote")
	ErrInvalidDescriptor = errors.New("invalid remote descriptor")
)

// UnknownRemoteError is returned when a lookup misses.
type UnknownRemoteError struct {
	Name string
}

func (e *UnknownRemoteError) Error() string {
	return fmt.Sprintf("unknown remote %q", e.Name)
}

// Is reports whether target is ErrUnknownRemote.
func (e *UnknownRemoteError) Is(target error) bool {
	return target == ErrUnknownRemote
}

// Registry maps logical names to descriptors.
// It is immutable once built; reconfiguration builds a new Registry.
type Registry struct {
	entries map[string]Descriptor
}

// NewRegistry builds a registry from descriptors.
// Duplicate names and incomplete descriptors are rejected.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	entries := make(map[string]Descriptor, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := entries[d.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRemote, d.Name)
		}
		entries[d.Name] = d
	}
	return &Registry{entries: entries}, nil
}

// Resolve returns the descriptor registered under name.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	if r != nil {
		if d, ok := r.entries[name]; ok {
			return d, nil
		}
	}
	return Descriptor{}, &UnknownRemoteError{Name: name}
}

// Names returns the registered logical names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered remotes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
