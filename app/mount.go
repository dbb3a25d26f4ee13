package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"

	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/domain/mount"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/rs/zerolog"
)

// RemoteLoader turns a descriptor into a mountable unit.
type RemoteLoader interface {
	Load(ctx context.Context, d remote.Descriptor) remote.Loaded
}

// MountDeps contains dependencies for MountController.
type MountDeps struct {
	Resolver Resolver
	Loader   RemoteLoader
	Logger   zerolog.Logger
	Metrics  *metrics.Collector // optional
}

// MountController mounts remotes into a single slot.
// Only the most recent Mount may change the slot or the state.
type MountController struct {
	slot     *mount.Slot
	resolver Resolver
	loader   RemoteLoader
	logger   zerolog.Logger
	metrics  *metrics.Collector

	mu         sync.Mutex
	generation uint64
	state      mount.State
	mounted    bool
}

// NewMountController creates a controller for slot.
func NewMountController(slot *mount.Slot, deps MountDeps) *MountController {
	return &MountController{
		slot:     slot,
		resolver: deps.Resolver,
		loader:   deps.Loader,
		logger:   deps.Logger.With().Str("component", "mount").Str("slot", slot.Name()).Logger(),
		metrics:  deps.Metrics,
	}
}

// Slot returns the controlled slot.
func (c *MountController) Slot() *mount.Slot {
	return c.slot
}

// State returns a snapshot of the current mount state.
// The second value is false until the first Mount.
func (c *MountController) State() (mount.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.mounted
}

// Mount starts mounting the named remote and returns immediately.
// The returned channel is closed once the attempt settles or is discarded.
func (c *MountController) Mount(ctx context.Context, name string) <-chan struct{} {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = mount.Begin(gen, name)
	c.mounted = true
	c.slot.Clear()
	c.mu.Unlock()

	c.observe(mount.Loading)
	c.logger.Debug().Str("remote", name).Uint64("generation", gen).Msg("mount started")

	done := make(chan struct{})
	go func() {
		defer close(done)
		loaded, content, err := c.load(ctx, name)
		c.settle(gen, loaded, content, err)
	}()
	return done
}

// Detach removes the slot from the page. Pending mounts become no-ops.
func (c *MountController) Detach() {
	c.slot.Detach()
}

func (c *MountController) load(ctx context.Context, name string) (loaded remote.Loaded, content template.HTML, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mount %s: panic: %v", name, r)
		}
	}()

	if c.resolver == nil {
		return loaded, "", fmt.Errorf("%w: %s", remote.ErrUnknownRemote, name)
	}
	d, err := c.resolver.Resolve(name)
	if err != nil {
		return loaded, "", err
	}
	loaded = c.loader.Load(ctx, d)
	if loaded.Unit == nil {
		return loaded, "", fmt.Errorf("mount %s: loader returned no unit", name)
	}
	return loaded, loaded.Unit.Render(), nil
}

func (c *MountController) settle(gen uint64, loaded remote.Loaded, content template.HTML, loadErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug().
			Uint64("generation", gen).
			Uint64("current", c.generation).
			Msg("discarding stale mount")
		if c.metrics != nil {
			c.metrics.StaleMounts.WithLabelValues(c.slot.Name()).Inc()
		}
		return
	}

	if loadErr != nil {
		next, err := c.state.Fail(loadErr)
		if err != nil {
			c.logger.Error().Err(err).Msg("mount state transition rejected")
			return
		}
		c.state = next
		c.observe(mount.Failed)
		c.logger.Error().Err(loadErr).Str("remote", c.state.Remote).Msg("mount failed")
		return
	}

	if err := c.slot.Insert(content); err != nil {
		if errors.Is(err, mount.ErrSlotDetached) {
			c.logger.Debug().Str("remote", c.state.Remote).Msg("slot detached, mount dropped")
			return
		}
		c.logger.Error().Err(err).Msg("slot insert failed")
		return
	}

	next, err := c.state.Settle(loaded)
	if err != nil {
		c.logger.Error().Err(err).Msg("mount state transition rejected")
		return
	}
	c.state = next
	c.observe(mount.Ready)

	event := c.logger.Info()
	if loaded.Degraded() {
		event = c.logger.Warn().Int("failed_stages", len(loaded.Attempts))
	}
	event.Str("remote", loaded.Remote).Str("strategy", string(loaded.Strategy)).Msg("mount ready")
}

func (c *MountController) observe(p mount.Phase) {
	if c.metrics != nil {
		c.metrics.Mounts.WithLabelValues(c.slot.Name(), p.String()).Inc()
	}
}
