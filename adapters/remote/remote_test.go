package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/fedshell/core/events"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Client Tests (remote.go)
// =============================================================================

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ClientConfig
		wantBase string
	}{
		{
			name: "with all fields",
			cfg: ClientConfig{
				BaseURL: "https://host.example.com/",
				Timeout: 30 * time.Second,
				Headers: map[string]string{"X-Custom": "value"},
			},
			wantBase: "https://host.example.com",
		},
		{
			name:     "empty config",
			cfg:      ClientConfig{},
			wantBase: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg)
			if client.baseURL != tt.wantBase {
				t.Errorf("baseURL = %q, want %q", client.baseURL, tt.wantBase)
			}
			if client.httpClient == nil || client.httpClient.Timeout == 0 {
				t.Error("httpClient missing timeout")
			}
		})
	}
}

func TestClientRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/test" {
			t.Errorf("Path = %q, want /test", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Custom") != "custom-value" {
			t.Errorf("X-Custom = %q", r.Header.Get("X-Custom"))
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "hello"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Headers: map[string]string{"X-Custom": "custom-value"},
	})

	var result map[string]string
	if err := client.Request(context.Background(), http.MethodPost, "/test", map[string]string{"k": "v"}, &result); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if result["message"] != "hello" {
		t.Errorf("result[message] = %q", result["message"])
	}
}

func TestClientRequest_AbsoluteURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: "http://unused.invalid"})
	if err := client.Request(context.Background(), http.MethodGet, server.URL+"/x", nil, nil); err != nil {
		t.Fatalf("absolute URL should bypass base: %v", err)
	}
}

func TestClientRequest_ErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"bad request", http.StatusBadRequest, "invalid input"},
		{"not found", http.StatusNotFound, "no manifest"},
		{"internal error", http.StatusInternalServerError, "server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{BaseURL: server.URL})
			err := client.Request(context.Background(), http.MethodGet, "/test", nil, nil)

			var remoteErr *RemoteError
			if !errors.As(err, &remoteErr) {
				t.Fatalf("Expected *RemoteError, got %T", err)
			}
			if remoteErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", remoteErr.StatusCode, tt.statusCode)
			}
			if remoteErr.Message != tt.body {
				t.Errorf("Message = %q, want %q", remoteErr.Message, tt.body)
			}
		})
	}
}

func TestClientRequest_InvalidBody(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost"})

	// Using a channel which cannot be marshaled to JSON
	if err := client.Request(context.Background(), http.MethodPost, "/test", make(chan int), nil); err == nil {
		t.Fatal("Expected error for unmarshalable body")
	}
}

func TestClientRequest_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	if err := client.Request(ctx, http.MethodGet, "/test", nil, nil); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"404 error", &RemoteError{StatusCode: 404}, true},
		{"wrapped 404", errors.Join(errors.New("ctx"), &RemoteError{StatusCode: 404}), true},
		{"500 error", &RemoteError{StatusCode: 500}, false},
		{"non-remote error", context.DeadlineExceeded, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// ManifestSource Tests (manifest.go)
// =============================================================================

func TestManifestSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/remoteEntry.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"mfe-transfers","exposes":{"./TransferComponent":{"url":"/fragments/transfer"}}}`))
	})
	mux.HandleFunc("/fragments/transfer", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/html" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(`<form id="transfer"></form>`))
	})
	mux.HandleFunc("/empty.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x","exposes":{}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	src := NewManifestSource(NewClient(ClientConfig{}))
	ctx := context.Background()

	m, err := src.FetchManifest(ctx, server.URL+"/remoteEntry.json")
	if err != nil {
		t.Fatalf("FetchManifest: %v", err)
	}
	ref, err := m.Resolve("./TransferComponent")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	frag, err := src.FetchFragment(ctx, server.URL+ref.URL)
	if err != nil {
		t.Fatalf("FetchFragment: %v", err)
	}
	if !strings.Contains(string(frag.Render()), `id="transfer"`) {
		t.Errorf("fragment = %q", frag.Render())
	}

	if _, err := src.FetchManifest(ctx, server.URL+"/empty.json"); err == nil {
		t.Error("manifest without exposes should fail")
	}
	_, err = src.FetchManifest(ctx, server.URL+"/missing.json")
	if !IsNotFound(err) {
		t.Errorf("missing manifest err = %v, want 404", err)
	}
}

// =============================================================================
// EventBridge Tests (bridge.go)
// =============================================================================

func TestEventBridge_Publish(t *testing.T) {
	var gotBody []byte
	var gotSig string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(events.SignatureHeader)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	bridge := NewEventBridge(NewClient(ClientConfig{BaseURL: server.URL}), "s3cret")
	payload := events.TransferSuccess{
		Amount:        decimal.NewFromInt(250),
		Timestamp:     time.Now(),
		TransactionID: "TXN-1",
	}
	if err := bridge.Publish(context.Background(), payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	decoded, err := events.Decode(gotBody)
	if err != nil {
		t.Fatalf("host could not decode: %v", err)
	}
	if decoded.(events.TransferSuccess).TransactionID != "TXN-1" {
		t.Errorf("decoded = %+v", decoded)
	}
	if err := events.Verify([]byte("s3cret"), gotBody, gotSig); err != nil {
		t.Errorf("signature: %v", err)
	}
}

func TestEventBridge_Unsigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(events.SignatureHeader) != "" {
			t.Error("unexpected signature header")
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	bridge := NewEventBridge(NewClient(ClientConfig{BaseURL: server.URL}), "")
	if err := bridge.Publish(context.Background(), events.TransferSuccess{TransactionID: "TXN-2"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestEventBridge_HostRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad signature", http.StatusUnauthorized)
	}))
	defer server.Close()

	bridge := NewEventBridge(NewClient(ClientConfig{BaseURL: server.URL}), "x")
	err := bridge.Publish(context.Background(), events.TransferSuccess{TransactionID: "TXN-3"})
	var re *RemoteError
	if !errors.As(err, &re) || re.StatusCode != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401 RemoteError", err)
	}
}

// =============================================================================
// Registration Tests (registration.go)
// =============================================================================

func TestRegisterAccessor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/remotes/mfe-transfers/accessor" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		switch r.Method {
		case http.MethodPost:
			var reg AccessorRegistration
			json.NewDecoder(r.Body).Decode(&reg)
			if reg.FragmentURL != "http://remote/fragments/transfer" {
				t.Errorf("fragment_url = %q", reg.FragmentURL)
			}
			json.NewEncoder(w).Encode(AccessorResponse{Remote: "mfe-transfers", Accessor: "getMfeTransfersComponent", ID: "abc"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	resp, err := client.RegisterAccessor(context.Background(), "mfe-transfers", "http://remote/fragments/transfer")
	if err != nil {
		t.Fatalf("RegisterAccessor: %v", err)
	}
	if resp.Accessor != "getMfeTransfersComponent" {
		t.Errorf("Accessor = %q", resp.Accessor)
	}
	if err := client.UnregisterAccessor(context.Background(), "mfe-transfers"); err != nil {
		t.Fatalf("UnregisterAccessor: %v", err)
	}
}
