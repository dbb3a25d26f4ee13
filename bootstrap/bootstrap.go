// Package bootstrap wires all dependencies and starts the host and the
// transfers remote.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/artpar/fedshell/adapters/accessor"
	"github.com/artpar/fedshell/adapters/clock"
	apihttp "github.com/artpar/fedshell/adapters/http"
	"github.com/artpar/fedshell/adapters/metrics"
	remoteclient "github.com/artpar/fedshell/adapters/remote"
	"github.com/artpar/fedshell/app"
	"github.com/artpar/fedshell/config"
	"github.com/artpar/fedshell/core/events"
	"github.com/artpar/fedshell/domain/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 30 * time.Second

// Version is reported by /version. Set by the CLI from build flags.
var Version = "dev"

// App represents the running host application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	Shell     *app.Shell
	Balance   *app.BalanceService
	Channel   *events.Channel
	Directory *app.RemoteDirectory
	Accessors *accessor.Registry

	loader   *app.Loader
	registry *prometheus.Registry
	holder   *config.Holder
}

// New creates and initializes the host from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing fedshell host")

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Metrics.Enabled {
		a.registry = newMetricsRegistry()
		a.Metrics = metrics.NewWithRegistry(a.registry)
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if err := a.initShell(); err != nil {
		return nil, fmt.Errorf("init shell: %w", err)
	}
	if err := a.initBalance(); err != nil {
		return nil, fmt.Errorf("init balance: %w", err)
	}
	a.initHTTPServer()

	return a, nil
}

// NewWithHotReload creates the host with configuration hot reload enabled.
// Changes to the remotes and loader settings are applied without a restart.
func NewWithHotReload(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	holder, err := config.NewHolder(configPath, setupLogger(cfg.Logging))
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get())
	if err != nil {
		return nil, err
	}

	a.holder = holder
	a.enableHotReload()
	return a, nil
}

func (a *App) initShell() error {
	cfg := a.Config

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	a.Directory = app.NewRemoteDirectory(reg)

	client := remoteclient.NewClient(remoteclient.ClientConfig{Timeout: cfg.Loader.FetchTimeout})
	manifests := remoteclient.NewManifestSource(client)

	a.Accessors = accessor.NewRegistry(clock.Real{}, a.Logger)
	a.loader = app.NewLoader(app.LoaderDeps{
		Manifests: manifests,
		Accessors: a.Accessors,
		Logger:    a.Logger,
		Metrics:   a.Metrics,
	}, loaderConfig(cfg))

	bindings := make([]app.SlotBinding, 0, len(cfg.Slots))
	for _, s := range cfg.Slots {
		bindings = append(bindings, app.SlotBinding{Slot: s.Slot, Remote: s.Remote})
	}
	for _, s := range cfg.UnboundSlots() {
		a.Logger.Warn().Str("slot", s.Slot).Str("remote", s.Remote).Msg("slot bound to undeclared remote")
	}

	shell, err := app.NewShell(bindings, app.MountDeps{
		Resolver: a.Directory,
		Loader:   a.loader,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
	})
	if err != nil {
		return err
	}
	a.Shell = shell
	return nil
}

func (a *App) initBalance() error {
	cfg := a.Config

	initial, err := cfg.InitialBalance()
	if err != nil {
		return err
	}
	policy, err := ledger.ParseOverdraftPolicy(cfg.Ledger.Overdraft)
	if err != nil {
		return err
	}
	formatter, err := cfg.Formatter()
	if err != nil {
		return err
	}

	opts := []events.Option{}
	if a.Metrics != nil {
		opts = append(opts, events.WithMetrics(a.Metrics))
	}
	a.Channel = events.NewChannel(a.Logger, opts...)

	balance, err := app.NewBalanceService(app.BalanceDeps{
		Channel: a.Channel,
		Ledger:  ledger.New(initial, policy, formatter),
		Logger:  a.Logger,
		Metrics: a.Metrics,
	})
	if err != nil {
		return err
	}
	a.Balance = balance
	return nil
}

func (a *App) initHTTPServer() {
	cfg := a.Config

	deps := apihttp.HostDeps{
		Shell:        a.Shell,
		Balance:      a.Balance,
		Channel:      a.Channel,
		Directory:    a.Directory,
		Accessors:    a.Accessors,
		Fragments:    remoteclient.NewManifestSource(remoteclient.NewClient(remoteclient.ClientConfig{Timeout: cfg.Loader.FetchTimeout})),
		Logger:       a.Logger,
		Metrics:      a.Metrics,
		Version:      Version,
		BridgeSecret: cfg.Bridge.Secret,
		MetricsPath:  cfg.Metrics.Path,
	}
	if a.registry != nil {
		deps.MetricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      apihttp.NewHostRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// enableHotReload applies configuration changes to the running host.
func (a *App) enableHotReload() {
	if a.Metrics != nil {
		a.holder.Instrument(a.Metrics)
	}

	a.holder.OnChange(a.applyConfig)

	if err := a.holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch disabled")
	}
	a.holder.WatchSignals()

	a.Logger.Info().Msg("hot reload enabled (file watch + SIGHUP)")
}

// applyConfig swaps the reloadable parts of cfg into the running host.
// Mounts already in flight keep the descriptor they resolved.
func (a *App) applyConfig(cfg *config.Config) {
	reg, err := cfg.Registry()
	if err != nil {
		a.Logger.Error().Err(err).Msg("rejecting reloaded remotes")
		return
	}
	a.Directory.Update(reg)
	a.loader.Reconfigure(loaderConfig(cfg))

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	a.Logger.Info().Strs("remotes", reg.Names()).Msg("configuration applied")
}

// Handler returns the host HTTP handler.
func (a *App) Handler() http.Handler {
	return a.HTTPServer.Handler
}

// Run starts the HTTP server, mounts every slot and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting host server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go a.Shell.MountAll(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the host.
func (a *App) Shutdown() error {
	if a.holder != nil {
		a.holder.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("http server shutdown error")
	}

	if a.Balance != nil {
		a.Balance.Close()
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func loaderConfig(cfg *config.Config) app.LoaderConfig {
	return app.LoaderConfig{
		StageTimeout:   cfg.Loader.StageTimeout,
		FallbackNotice: cfg.Loader.FallbackNotice,
	}
}

func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
