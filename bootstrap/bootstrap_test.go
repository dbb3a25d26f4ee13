package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artpar/fedshell/adapters/clock"
	"github.com/artpar/fedshell/adapters/random"
	"github.com/artpar/fedshell/app"
	"github.com/artpar/fedshell/bootstrap"
	"github.com/artpar/fedshell/config"
	"github.com/artpar/fedshell/domain/mount"
	"github.com/artpar/fedshell/domain/remote"
)

func hostConfig(t *testing.T, manifestURL string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
remotes:
  - name: mfe-transfers
    manifest_url: %s
    exposed_module: ./TransferComponent
slots:
  - slot: main
    remote: mfe-transfers
loader:
  stage_timeout: 2s
logging:
  level: error
`, manifestURL)))
	if err != nil {
		t.Fatalf("parse host config: %v", err)
	}
	return cfg
}

func remoteConfig(t *testing.T, hostURL, publicURL string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
bridge:
  host_url: %s
remote_server:
  public_url: %s
transfer:
  failure_rate: 0
logging:
  level: error
`, hostURL, publicURL)))
	if err != nil {
		t.Fatalf("parse remote config: %v", err)
	}
	return cfg
}

// lateHandler lets a test server start before the handler it serves exists.
type lateHandler struct {
	h atomic.Pointer[http.Handler]
}

func (l *lateHandler) set(h http.Handler) { l.h.Store(&h) }

func (l *lateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := l.h.Load()
	if h == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	(*h).ServeHTTP(w, r)
}

type cluster struct {
	late      *lateHandler
	host      *bootstrap.App
	remote    *bootstrap.RemoteApp
	hostSrv   *httptest.Server
	remoteSrv *httptest.Server
}

func newCluster(t *testing.T) *cluster {
	t.Helper()

	late := &lateHandler{}
	remoteSrv := httptest.NewServer(late)
	t.Cleanup(remoteSrv.Close)

	host, err := bootstrap.New(hostConfig(t, remoteSrv.URL+"/remoteEntry.json"))
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	hostSrv := httptest.NewServer(host.Handler())
	t.Cleanup(hostSrv.Close)

	rem, err := bootstrap.NewRemote(remoteConfig(t, hostSrv.URL, remoteSrv.URL), bootstrap.RemoteOptions{
		Clock:  clock.NewFake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		Random: random.NewFake(),
	})
	if err != nil {
		t.Fatalf("create remote: %v", err)
	}
	late.set(rem.Handler())

	return &cluster{late: late, host: host, remote: rem, hostSrv: hostSrv, remoteSrv: remoteSrv}
}

func TestBootstrap_Integration(t *testing.T) {
	c := newCluster(t)

	if c.host.Metrics == nil {
		t.Error("Metrics should be enabled by default")
	}
	if c.host.HTTPServer.Addr != "0.0.0.0:4200" {
		t.Errorf("Addr = %s, want 0.0.0.0:4200", c.host.HTTPServer.Addr)
	}
	if c.remote.HTTPServer.Addr != "0.0.0.0:4201" {
		t.Errorf("remote Addr = %s, want 0.0.0.0:4201", c.remote.HTTPServer.Addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.host.Shell.MountAll(ctx)

	view, err := c.host.Shell.View("main")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.State.Phase != mount.Ready {
		t.Fatalf("phase = %v, want Ready (err %q)", view.State.Phase, view.State.Err)
	}
	if view.State.Strategy != remote.StrategyFederated {
		t.Errorf("strategy = %v, want federated", view.State.Strategy)
	}
	ctrl, err := c.host.Shell.Controller("main")
	if err != nil {
		t.Fatalf("Controller: %v", err)
	}
	if content := string(ctrl.Slot().Content()); !strings.Contains(content, "Nueva Transferencia") {
		t.Errorf("mounted content missing transfer form: %q", content)
	}

	body := `{"sourceAccount":"1234567890","destinationAccount":"0987654321","amount":250,"description":"arriendo"}`
	resp, err := http.Post(c.remoteSrv.URL+"/transfers", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /transfers: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transfer status = %d, want 200", resp.StatusCode)
	}

	var balance app.BalanceView
	getJSON(t, c.hostSrv.URL+"/api/balance", &balance)
	if balance.Amount != "49750.00" {
		t.Errorf("balance = %s, want 49750.00", balance.Amount)
	}
	if !strings.Contains(balance.Formatted, "49.750") {
		t.Errorf("formatted = %q, want it to contain 49.750", balance.Formatted)
	}

	resp, err = http.Get(c.hostSrv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	metricsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(metricsBody, []byte("fedshell_balance")) {
		t.Error("/metrics should expose the balance gauge")
	}
	if !bytes.Contains(metricsBody, []byte("go_goroutines")) {
		t.Error("/metrics should expose runtime metrics")
	}
}

func TestRemote_RegisterAccessor(t *testing.T) {
	c := newCluster(t)
	ctx := context.Background()

	if err := c.remote.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := c.host.Accessors.Lookup("mfe-transfers"); !ok {
		t.Fatal("accessor should be registered with the host")
	}

	// With the manifest unreachable the host falls back to the accessor.
	served := c.remote.Handler()
	c.late.set(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/remoteEntry.json" {
			http.NotFound(w, r)
			return
		}
		served.ServeHTTP(w, r)
	}))
	done, err := c.host.Shell.Mount(ctx, "main", "")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	<-done

	view, _ := c.host.Shell.View("main")
	if view.State.Phase != mount.Ready {
		t.Fatalf("phase = %v, want Ready", view.State.Phase)
	}
	if view.State.Strategy != remote.StrategyGlobalAccessor {
		t.Errorf("strategy = %v, want globalAccessor", view.State.Strategy)
	}
	if !view.State.Degraded {
		t.Error("accessor load should be degraded")
	}

	if err := c.remote.Unregister(ctx); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, ok := c.host.Accessors.Lookup("mfe-transfers"); ok {
		t.Error("accessor should be gone after Unregister")
	}
}

func TestNew_InvalidSlots(t *testing.T) {
	cfg := config.Default()
	cfg.Slots = append(cfg.Slots, config.SlotConfig{Slot: "main", Remote: "mfe-transfers"})

	if _, err := bootstrap.New(cfg); err == nil {
		t.Fatal("expected error for duplicate slots")
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.Logging.Level = "error"

	a, err := bootstrap.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Metrics != nil {
		t.Error("Metrics should be nil when disabled")
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404", rec.Code)
	}
}

func TestNewWithHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fedshell.yaml")

	write := func(remotes string) {
		t.Helper()
		data := "remotes:\n" + remotes + "slots:\n  - slot: main\n    remote: mfe-transfers\nlogging:\n  level: error\n"
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	transfers := "  - name: mfe-transfers\n    manifest_url: http://localhost:4201/remoteEntry.json\n    exposed_module: ./TransferComponent\n"
	accounts := "  - name: mfe-accounts\n    manifest_url: http://localhost:4202/remoteEntry.json\n    exposed_module: ./AccountsComponent\n"

	write(transfers)
	a, err := bootstrap.NewWithHotReload(path)
	if err != nil {
		t.Fatalf("NewWithHotReload: %v", err)
	}
	defer a.Shutdown()

	if _, err := a.Directory.Resolve("mfe-accounts"); err == nil {
		t.Fatal("mfe-accounts should not resolve before reload")
	}

	write(transfers + accounts)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := a.Directory.Resolve("mfe-accounts"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reloaded remote was not applied")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
