package accessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/fedshell/adapters/clock"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/rs/zerolog"
)

type stubSource struct {
	fragments map[string]remote.Fragment
}

func (s stubSource) FetchManifest(ctx context.Context, url string) (remote.Manifest, error) {
	return remote.Manifest{}, errors.New("not used")
}

func (s stubSource) FetchFragment(ctx context.Context, url string) (remote.Fragment, error) {
	f, ok := s.fragments[url]
	if !ok {
		return remote.Fragment{}, errors.New("404")
	}
	return f, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(clock.NewFake(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)), zerolog.Nop())
}

func TestRegisterAndLookup(t *testing.T) {
	r := newTestRegistry()

	entry := r.Register("mfe-transfers", "in-process", func(ctx context.Context) (remote.Unit, error) {
		return remote.Fragment{HTML: "<p>embedded</p>"}, nil
	})
	if entry.Accessor != "getMfeTransfersComponent" || entry.ID == "" {
		t.Errorf("entry = %+v", entry)
	}

	p, ok := r.Lookup("mfe-transfers")
	if !ok {
		t.Fatal("Lookup missed")
	}
	u, err := p(context.Background())
	if err != nil || u.Render() != "<p>embedded</p>" {
		t.Errorf("provider = %v, %v", u, err)
	}

	if _, ok := r.Lookup("mfe-cards"); ok {
		t.Error("Lookup hit for unregistered remote")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := newTestRegistry()
	r.Register("mfe-transfers", "a", func(context.Context) (remote.Unit, error) { return remote.Fragment{HTML: "a"}, nil })
	r.Register("mfe-transfers", "b", func(context.Context) (remote.Unit, error) { return remote.Fragment{HTML: "b"}, nil })

	if n := len(r.List()); n != 1 {
		t.Fatalf("List() has %d entries, want 1", n)
	}
	p, _ := r.Lookup("mfe-transfers")
	u, _ := p(context.Background())
	if u.Render() != "b" {
		t.Errorf("latest registration should win, got %q", u.Render())
	}
}

func TestRegisterFragment(t *testing.T) {
	r := newTestRegistry()
	src := stubSource{fragments: map[string]remote.Fragment{
		"http://remote/fragments/transfer": {Source: "http://remote/fragments/transfer", HTML: "<form></form>"},
	}}

	r.RegisterFragment("mfe-transfers", "http://remote/fragments/transfer", src)
	p, ok := r.Lookup("mfe-transfers")
	if !ok {
		t.Fatal("Lookup missed")
	}
	u, err := p(context.Background())
	if err != nil || u.Render() != "<form></form>" {
		t.Errorf("provider = %v, %v", u, err)
	}
	if r.List()[0].Source != "http://remote/fragments/transfer" {
		t.Errorf("source = %q", r.List()[0].Source)
	}
}

func TestUnregister(t *testing.T) {
	r := newTestRegistry()
	r.Register("mfe-transfers", "x", func(context.Context) (remote.Unit, error) { return nil, nil })

	if !r.Unregister("mfe-transfers") {
		t.Error("Unregister returned false")
	}
	if r.Unregister("mfe-transfers") {
		t.Error("second Unregister returned true")
	}
	if _, ok := r.Lookup("mfe-transfers"); ok {
		t.Error("Lookup hit after Unregister")
	}
}

func TestListSorted(t *testing.T) {
	r := newTestRegistry()
	noop := func(context.Context) (remote.Unit, error) { return nil, nil }
	r.Register("zeta", "x", noop)
	r.Register("alpha", "x", noop)

	list := r.List()
	if len(list) != 2 || list[0].Remote != "alpha" || list[1].Remote != "zeta" {
		t.Errorf("List() = %+v", list)
	}
}
