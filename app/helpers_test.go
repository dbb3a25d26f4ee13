package app_test

import (
	"context"
	"errors"
	"html/template"
	"sync"
	"time"

	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/domain/transfer"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func transfersDescriptor() remote.Descriptor {
	return remote.Descriptor{
		Name:          "mfe-transfers",
		ManifestURL:   "http://transfers.local/remoteEntry.json",
		ExposedModule: "./TransferComponent",
	}
}

// stubManifests is a ports.ManifestSource with canned answers.
type stubManifests struct {
	mu          sync.Mutex
	manifest    remote.Manifest
	manifestErr error
	fragment    template.HTML
	fragmentErr error
	fetched     []string
}

func newStubManifests() *stubManifests {
	return &stubManifests{
		manifest: remote.Manifest{
			Name: "mfe-transfers",
			Exposes: map[string]remote.ModuleRef{
				"./TransferComponent": {URL: "/fragments/transfer"},
			},
		},
		fragment: `<form id="transfer"></form>`,
	}
}

func (s *stubManifests) FetchManifest(ctx context.Context, url string) (remote.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, url)
	if s.manifestErr != nil {
		return remote.Manifest{}, s.manifestErr
	}
	return s.manifest, nil
}

func (s *stubManifests) FetchFragment(ctx context.Context, url string) (remote.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, url)
	if s.fragmentErr != nil {
		return remote.Fragment{}, s.fragmentErr
	}
	return remote.Fragment{Source: url, HTML: s.fragment}, nil
}

// gatedLoader blocks each Load until its remote's gate is released.
type gatedLoader struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	panic bool
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{gates: make(map[string]chan struct{})}
}

func (g *gatedLoader) gate(name string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[name]
	if !ok {
		ch = make(chan struct{})
		g.gates[name] = ch
	}
	return ch
}

func (g *gatedLoader) release(name string) {
	close(g.gate(name))
}

func (g *gatedLoader) Load(ctx context.Context, d remote.Descriptor) remote.Loaded {
	<-g.gate(d.Name)
	if g.panic {
		panic("remote blew up")
	}
	return remote.Loaded{
		Remote:   d.Name,
		Unit:     remote.Fragment{Source: d.Name, HTML: template.HTML("<p>" + d.Name + "</p>")},
		Strategy: remote.StrategyFederated,
	}
}

// scriptedBackend fails the first n calls with a transient error.
type scriptedBackend struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (b *scriptedBackend) Execute(ctx context.Context, req transfer.Request) (transfer.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls <= b.failures {
		if b.err != nil {
			return transfer.Result{}, b.err
		}
		return transfer.Result{}, transfer.ErrTransient
	}
	return transfer.Result{
		Success:       true,
		TransactionID: "TXN-1",
		Timestamp:     baseTime,
		Message:       transfer.SuccessMessage,
	}, nil
}

var errBoom = errors.New("boom")
