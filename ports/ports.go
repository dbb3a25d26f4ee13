// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/fedshell/core/events"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/domain/transfer"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
	// Sleep suspends for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Random abstracts randomness for testability.
type Random interface {
	// Float64 returns a number in [0, 1).
	Float64() float64
	// String generates a random string of n base36 characters.
	String(n int) (string, error)
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Remote Loading Ports
// -----------------------------------------------------------------------------

// ManifestSource fetches manifests and instantiates the modules they expose.
type ManifestSource interface {
	// FetchManifest retrieves and parses the manifest at url.
	FetchManifest(ctx context.Context, url string) (remote.Manifest, error)

	// FetchFragment retrieves the markup of a module.
	FetchFragment(ctx context.Context, url string) (remote.Fragment, error)
}

// Provider produces a mountable unit on demand.
type Provider func(ctx context.Context) (remote.Unit, error)

// AccessorRegistry holds providers published by remotes outside the manifest protocol.
type AccessorRegistry interface {
	// Lookup returns the provider registered for a remote's logical name.
	Lookup(name string) (Provider, bool)
}

// -----------------------------------------------------------------------------
// Event Ports
// -----------------------------------------------------------------------------

// Publisher announces events across the host/remote boundary.
type Publisher interface {
	Publish(ctx context.Context, payload events.Payload) error
}

// -----------------------------------------------------------------------------
// Transfer Ports
// -----------------------------------------------------------------------------

// TransferBackend executes a single transfer attempt.
// Failures are transient unless they wrap a validation error.
type TransferBackend interface {
	Execute(ctx context.Context, req transfer.Request) (transfer.Result, error)
}
