package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/ports"
	"github.com/rs/zerolog"
)

// DefaultFallbackNotice is shown when neither the manifest nor an accessor
// could produce the remote.
const DefaultFallbackNotice = "Módulo no disponible temporalmente. Intente nuevamente más tarde."

// ErrAccessorNotRegistered is the accessor stage failure when nothing was published.
var ErrAccessorNotRegistered = errors.New("accessor not registered")

// LoaderDeps contains dependencies for Loader.
type LoaderDeps struct {
	Manifests ports.ManifestSource
	Accessors ports.AccessorRegistry
	Logger    zerolog.Logger
	Metrics   *metrics.Collector // optional
}

// LoaderConfig contains configuration for Loader.
type LoaderConfig struct {
	StageTimeout   time.Duration // per stage; 0 means 5s
	FallbackNotice string
}

// Loader resolves descriptors to mountable units.
// Load never fails: stages are tried in order and the last one always succeeds.
type Loader struct {
	manifests ports.ManifestSource
	accessors ports.AccessorRegistry
	logger    zerolog.Logger
	metrics   *metrics.Collector

	settings atomic.Pointer[loaderSettings]
}

type loaderSettings struct {
	stageTimeout time.Duration
	notice       string
}

type stage struct {
	strategy remote.Strategy
	load     func(ctx context.Context, d remote.Descriptor) (remote.Unit, error)
}

// NewLoader creates a loader.
func NewLoader(deps LoaderDeps, cfg LoaderConfig) *Loader {
	l := &Loader{
		manifests: deps.Manifests,
		accessors: deps.Accessors,
		logger:    deps.Logger.With().Str("component", "loader").Logger(),
		metrics:   deps.Metrics,
	}
	l.Reconfigure(cfg)
	return l
}

// Reconfigure applies new settings to subsequent loads.
func (l *Loader) Reconfigure(cfg LoaderConfig) {
	timeout := cfg.StageTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	notice := cfg.FallbackNotice
	if notice == "" {
		notice = DefaultFallbackNotice
	}
	l.settings.Store(&loaderSettings{stageTimeout: timeout, notice: notice})
}

// Load runs the fallback chain: federated, then global accessor, then the
// static placeholder. Every failed stage is logged and kept in Attempts.
func (l *Loader) Load(ctx context.Context, d remote.Descriptor) remote.Loaded {
	settings := l.settings.Load()
	result := remote.Loaded{Remote: d.Name}

	stages := []stage{
		{remote.StrategyFederated, l.loadFederated},
		{remote.StrategyGlobalAccessor, l.loadAccessor},
	}

	for _, s := range stages {
		unit, err := l.runStage(ctx, settings.stageTimeout, s, d)
		if err == nil {
			result.Unit = unit
			result.Strategy = s.strategy
			return result
		}

		loadErr := &remote.LoadError{Stage: s.strategy, Cause: err}
		result.Attempts = append(result.Attempts, loadErr)
		l.logger.Warn().
			Err(err).
			Str("remote", d.Name).
			Str("stage", string(s.strategy)).
			Msg("remote load stage failed")
	}

	result.Unit = remote.Placeholder{Remote: d.Name, Notice: settings.notice}
	result.Strategy = remote.StrategyStaticFallback
	l.record(d.Name, remote.StrategyStaticFallback, "ok", 0)

	l.logger.Warn().
		Str("remote", d.Name).
		Int("failed_stages", len(result.Attempts)).
		Msg("serving static fallback")
	return result
}

func (l *Loader) runStage(ctx context.Context, timeout time.Duration, s stage, d remote.Descriptor) (unit remote.Unit, err error) {
	start := time.Now()
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			unit, err = nil, fmt.Errorf("panic: %v", r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		l.record(d.Name, s.strategy, outcome, time.Since(start))
	}()

	unit, err = s.load(stageCtx, d)
	if err == nil && unit == nil {
		err = errors.New("stage produced no unit")
	}
	return unit, err
}

func (l *Loader) loadFederated(ctx context.Context, d remote.Descriptor) (remote.Unit, error) {
	if l.manifests == nil {
		return nil, errors.New("manifest source not configured")
	}
	m, err := l.manifests.FetchManifest(ctx, d.ManifestURL)
	if err != nil {
		return nil, err
	}
	ref, err := m.Resolve(d.ExposedModule)
	if err != nil {
		return nil, err
	}
	moduleURL, err := ref.ResolveURL(d.ManifestURL)
	if err != nil {
		return nil, err
	}
	return l.manifests.FetchFragment(ctx, moduleURL)
}

func (l *Loader) loadAccessor(ctx context.Context, d remote.Descriptor) (remote.Unit, error) {
	if l.accessors == nil {
		return nil, ErrAccessorNotRegistered
	}
	provider, ok := l.accessors.Lookup(d.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccessorNotRegistered, remote.AccessorName(d.Name))
	}
	return provider(ctx)
}

func (l *Loader) record(name string, s remote.Strategy, outcome string, elapsed time.Duration) {
	if l.metrics == nil {
		return
	}
	l.metrics.LoadAttempts.WithLabelValues(name, string(s), outcome).Inc()
	if elapsed > 0 {
		l.metrics.LoadDuration.WithLabelValues(string(s)).Observe(elapsed.Seconds())
	}
}
