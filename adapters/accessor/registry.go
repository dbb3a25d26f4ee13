// Package accessor holds providers that remotes publish outside the manifest
// protocol. It replaces an ambient, process-global accessor slot with an
// explicit registry injected into the loader.
package accessor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Entry describes one registered accessor.
type Entry struct {
	ID           string    `json:"id"`
	Remote       string    `json:"remote"`
	Accessor     string    `json:"accessor"`
	Source       string    `json:"source"` // "in-process" or the fragment URL
	RegisteredAt time.Time `json:"registered_at"`
}

type registration struct {
	entry    Entry
	provider ports.Provider
}

// Registry maps accessor names to providers. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
	clock   ports.Clock
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(clock ports.Clock, logger zerolog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]registration),
		clock:   clock,
		logger:  logger.With().Str("component", "accessor").Logger(),
	}
}

// Register installs provider for the remote's logical name, replacing any
// earlier registration.
func (r *Registry) Register(name, source string, provider ports.Provider) Entry {
	entry := Entry{
		ID:           uuid.New().String(),
		Remote:       name,
		Accessor:     remote.AccessorName(name),
		Source:       source,
		RegisteredAt: r.clock.Now(),
	}

	r.mu.Lock()
	_, replaced := r.entries[entry.Accessor]
	r.entries[entry.Accessor] = registration{entry: entry, provider: provider}
	r.mu.Unlock()

	r.logger.Info().
		Str("remote", name).
		Str("accessor", entry.Accessor).
		Str("source", source).
		Bool("replaced", replaced).
		Msg("accessor registered")
	return entry
}

// RegisterFragment installs a provider that fetches markup from url on each call.
func (r *Registry) RegisterFragment(name, url string, src ports.ManifestSource) Entry {
	return r.Register(name, url, func(ctx context.Context) (remote.Unit, error) {
		return src.FetchFragment(ctx, url)
	})
}

// Unregister removes the accessor for name. It reports whether one existed.
func (r *Registry) Unregister(name string) bool {
	key := remote.AccessorName(name)

	r.mu.Lock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		r.logger.Info().Str("remote", name).Str("accessor", key).Msg("accessor removed")
	}
	return ok
}

// Lookup returns the provider published for the remote's logical name.
func (r *Registry) Lookup(name string) (ports.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[remote.AccessorName(name)]
	if !ok {
		return nil, false
	}
	return reg.provider, true
}

// List returns all registrations sorted by accessor name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Accessor < out[j].Accessor })
	return out
}

// Ensure interface compliance.
var _ ports.AccessorRegistry = (*Registry)(nil)
