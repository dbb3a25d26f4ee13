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

	"github.com/artpar/fedshell/adapters/backend"
	"github.com/artpar/fedshell/adapters/clock"
	apihttp "github.com/artpar/fedshell/adapters/http"
	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/adapters/random"
	remoteclient "github.com/artpar/fedshell/adapters/remote"
	"github.com/artpar/fedshell/app"
	"github.com/artpar/fedshell/config"
	"github.com/artpar/fedshell/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RemoteApp is the transfers remote: it serves its manifest and form
// fragment, executes transfers and announces them to the host.
type RemoteApp struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Metrics    *metrics.Collector
	HTTPServer *http.Server
	Transfers  *app.TransferService

	host     *remoteclient.Client
	registry *prometheus.Registry
}

// RemoteOptions overrides collaborators of the remote, mostly for tests.
type RemoteOptions struct {
	Clock     ports.Clock
	Random    ports.Random
	Publisher ports.Publisher // defaults to an event bridge to the host
}

// NewRemote creates the transfers remote.
func NewRemote(cfg *config.Config, opts RemoteOptions) (*RemoteApp, error) {
	logger := setupLogger(cfg.Logging).With().Str("remote", cfg.Remote.Name).Logger()
	logger.Info().Msg("initializing fedshell remote")

	r := &RemoteApp{
		Config: cfg,
		Logger: logger,
		host: remoteclient.NewClient(remoteclient.ClientConfig{
			BaseURL: cfg.Bridge.HostURL,
			Timeout: cfg.Loader.FetchTimeout,
		}),
	}

	if cfg.Metrics.Enabled {
		r.registry = newMetricsRegistry()
		r.Metrics = metrics.NewWithRegistry(r.registry)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	rnd := opts.Random
	if rnd == nil {
		rnd = random.Real{}
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = remoteclient.NewEventBridge(r.host, cfg.Bridge.Secret)
	}

	r.Transfers = app.NewTransferService(app.TransferDeps{
		Backend: backend.NewMock(clk, rnd, backend.MockConfig{
			Latency:     cfg.Transfer.Latency,
			FailureRate: cfg.Transfer.FailureRate,
		}),
		Publisher: publisher,
		Clock:     clk,
		Logger:    logger,
		Metrics:   r.Metrics,
	}, app.TransferConfig{
		Retries:    cfg.Transfer.Retries,
		RetryDelay: cfg.Transfer.RetryDelay,
	})

	deps := apihttp.TransfersDeps{
		Name:      cfg.Remote.Name,
		Version:   Version,
		PublicURL: cfg.Remote.PublicURL,
		HostURL:   cfg.Bridge.HostURL,
		Transfers: r.Transfers,
		Logger:    logger,
		Metrics:   r.Metrics,
	}
	if r.registry != nil {
		deps.MetricsHandler = promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	}

	r.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Remote.Host, strconv.Itoa(cfg.Remote.Port)),
		Handler:      apihttp.NewTransfersRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return r, nil
}

// Handler returns the remote HTTP handler.
func (r *RemoteApp) Handler() http.Handler {
	return r.HTTPServer.Handler
}

// FragmentURL is where the host can fetch the transfer form directly.
func (r *RemoteApp) FragmentURL() string {
	return r.Config.Remote.PublicURL + apihttp.TransferFragmentPath
}

// Register publishes the remote's accessor with the host so the host can
// still mount it when the manifest is unreachable.
func (r *RemoteApp) Register(ctx context.Context) error {
	resp, err := r.host.RegisterAccessor(ctx, r.Config.Remote.Name, r.FragmentURL())
	if err != nil {
		return err
	}
	r.Logger.Info().
		Str("accessor", resp.Accessor).
		Str("id", resp.ID).
		Msg("accessor registered with host")
	return nil
}

// Unregister withdraws the accessor published by Register.
func (r *RemoteApp) Unregister(ctx context.Context) error {
	return r.host.UnregisterAccessor(ctx, r.Config.Remote.Name)
}

// Run starts the HTTP server and blocks until shutdown.
func (r *RemoteApp) Run() error {
	errCh := make(chan error, 1)
	go func() {
		r.Logger.Info().
			Str("addr", r.HTTPServer.Addr).
			Str("public_url", r.Config.Remote.PublicURL).
			Msg("starting remote server")
		if err := r.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if r.Config.Remote.Register {
		if err := r.Register(context.Background()); err != nil {
			// The host may start later; manifest loading still works.
			r.Logger.Warn().Err(err).Msg("accessor registration failed")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		r.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return r.Shutdown()
}

// Shutdown withdraws the accessor when it was registered and stops the server.
func (r *RemoteApp) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if r.Config.Remote.Register {
		if err := r.Unregister(ctx); err != nil {
			r.Logger.Warn().Err(err).Msg("accessor unregistration failed")
		}
	}

	if err := r.HTTPServer.Shutdown(ctx); err != nil {
		r.Logger.Error().Err(err).Msg("http server shutdown error")
	}

	r.Logger.Info().Msg("shutdown complete")
	return nil
}
