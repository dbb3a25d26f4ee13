package http_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artpar/fedshell/adapters/accessor"
	"github.com/artpar/fedshell/adapters/backend"
	"github.com/artpar/fedshell/adapters/clock"
	fedhttp "github.com/artpar/fedshell/adapters/http"
	"github.com/artpar/fedshell/adapters/idgen"
	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/adapters/random"
	remoteclient "github.com/artpar/fedshell/adapters/remote"
	"github.com/artpar/fedshell/app"
	"github.com/artpar/fedshell/core/events"
	"github.com/artpar/fedshell/domain/ledger"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type hostEnv struct {
	server    *httptest.Server
	shell     *app.Shell
	balance   *app.BalanceService
	channel   *events.Channel
	accessors *accessor.Registry
	metrics   *metrics.Collector
}

// newHost starts a host whose "main" slot is bound to mfe-transfers at manifestURL.
func newHost(t *testing.T, manifestURL, secret string) *hostEnv {
	t.Helper()

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	reg, err := remote.NewRegistry(remote.Descriptor{
		Name:          "mfe-transfers",
		ManifestURL:   manifestURL,
		ExposedModule: "./TransferComponent",
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	dir := app.NewRemoteDirectory(reg)

	fragments := remoteclient.NewManifestSource(remoteclient.NewClient(remoteclient.ClientConfig{Timeout: 2 * time.Second}))
	accessors := accessor.NewRegistry(clock.NewFake(baseTime), zerolog.Nop())
	loader := app.NewLoader(app.LoaderDeps{
		Manifests: fragments,
		Accessors: accessors,
		Logger:    zerolog.Nop(),
		Metrics:   m,
	}, app.LoaderConfig{StageTimeout: 2 * time.Second})

	shell, err := app.NewShell([]app.SlotBinding{{Slot: "main", Remote: "mfe-transfers"}}, app.MountDeps{
		Resolver: dir,
		Loader:   loader,
		Logger:   zerolog.Nop(),
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("NewShell: %v", err)
	}

	ch := events.NewChannel(zerolog.Nop(), events.WithMetrics(m))
	balance, err := app.NewBalanceService(app.BalanceDeps{
		Channel: ch,
		Ledger:  ledger.New(decimal.NewFromInt(50000), ledger.OverdraftAllow, nil),
		Logger:  zerolog.Nop(),
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("NewBalanceService: %v", err)
	}

	router := fedhttp.NewHostRouter(fedhttp.HostDeps{
		Shell:        shell,
		Balance:      balance,
		Channel:      ch,
		Directory:    dir,
		Accessors:    accessors,
		Fragments:    fragments,
		IDs:          idgen.NewSequential("dlv_"),
		Logger:       zerolog.Nop(),
		Metrics:      m,
		Version:      "test",
		BridgeSecret: secret,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &hostEnv{server: srv, shell: shell, balance: balance, channel: ch, accessors: accessors, metrics: m}
}

type transfersEnv struct {
	server *httptest.Server
	clock  *clock.Fake
}

// newTransfers starts a transfers remote that publishes through pub.
// A nil pub is replaced by a bridge to hostURL.
func newTransfers(t *testing.T, hostURL string, pub ports.Publisher, failureRate float64) *transfersEnv {
	t.Helper()

	clk := clock.NewFake(baseTime)
	if pub == nil {
		pub = remoteclient.NewEventBridge(remoteclient.NewClient(remoteclient.ClientConfig{BaseURL: hostURL}), "")
	}
	svc := app.NewTransferService(app.TransferDeps{
		Backend:   backend.NewMock(clk, random.NewFake(), backend.MockConfig{FailureRate: failureRate}),
		Publisher: pub,
		Clock:     clk,
		Logger:    zerolog.Nop(),
	}, app.TransferConfig{})

	router := fedhttp.NewTransfersRouter(fedhttp.TransfersDeps{
		Name:      "mfe-transfers",
		Version:   "1.0.0",
		HostURL:   hostURL,
		Transfers: svc,
		Logger:    zerolog.Nop(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &transfersEnv{server: srv, clock: clk}
}

type recordingPublisher struct {
	events []events.Payload
}

func (p *recordingPublisher) Publish(ctx context.Context, payload events.Payload) error {
	p.events = append(p.events, payload)
	return nil
}
