package app

import (
	"sync/atomic"

	"github.com/artpar/fedshell/domain/remote"
)

// Resolver looks up remote descriptors by logical name.
type Resolver interface {
	Resolve(name string) (remote.Descriptor, error)
}

// RemoteDirectory holds the current descriptor registry.
// The registry is swapped atomically on config reload; in-flight mounts keep
// the descriptor they already resolved.
type RemoteDirectory struct {
	current atomic.Pointer[remote.Registry]
}

// NewRemoteDirectory creates a directory serving reg.
func NewRemoteDirectory(reg *remote.Registry) *RemoteDirectory {
	d := &RemoteDirectory{}
	d.Update(reg)
	return d
}

// Update replaces the registry.
func (d *RemoteDirectory) Update(reg *remote.Registry) {
	d.current.Store(reg)
}

// Registry returns the registry currently in use.
func (d *RemoteDirectory) Registry() *remote.Registry {
	return d.current.Load()
}

// Resolve implements Resolver.
func (d *RemoteDirectory) Resolve(name string) (remote.Descriptor, error) {
	return d.current.Load().Resolve(name)
}
