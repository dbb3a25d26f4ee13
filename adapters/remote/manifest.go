package remote

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/ports"
)

// ManifestSource fetches manifests and fragments over HTTP.
//
// API Contract:
//
//	GET <manifest url>
//	Response: {"name": "mfe-transfers", "exposes": {"./TransferComponent": {"url": "/fragments/transfer"}}}
//
//	GET <module url>
//	Response: text/html fragment
type ManifestSource struct {
	client *Client
}

// NewManifestSource creates a manifest source.
func NewManifestSource(client *Client) *ManifestSource {
	return &ManifestSource{client: client}
}

// FetchManifest retrieves and parses the manifest at url.
func (s *ManifestSource) FetchManifest(ctx context.Context, url string) (remote.Manifest, error) {
	var m remote.Manifest
	if err := s.client.Request(ctx, http.MethodGet, url, nil, &m); err != nil {
		return remote.Manifest{}, fmt.Errorf("fetch manifest: %w", err)
	}
	if len(m.Exposes) == 0 {
		return remote.Manifest{}, fmt.Errorf("fetch manifest: %s exposes no modules", url)
	}
	return m, nil
}

// FetchFragment retrieves the markup of a module.
func (s *ManifestSource) FetchFragment(ctx context.Context, url string) (remote.Fragment, error) {
	body, err := s.client.Get(ctx, url, "text/html")
	if err != nil {
		return remote.Fragment{}, fmt.Errorf("fetch fragment: %w", err)
	}
	if len(body) == 0 {
		return remote.Fragment{}, fmt.Errorf("fetch fragment: %s returned empty body", url)
	}
	return remote.Fragment{Source: url, HTML: template.HTML(body)}, nil
}

// Ensure interface compliance.
var _ ports.ManifestSource = (*ManifestSource)(nil)
