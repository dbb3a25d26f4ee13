package remote

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrExposedModuleNotFound is returned when a manifest does not export a path.
var ErrExposedModuleNotFound = errors.New("exposed module not found in manifest")

// Manifest is the machine-readable export table published by a remote.
type Manifest struct {
	Name    string               `json:"name"`
	Version string               `json:"version,omitempty"`
	Exposes map[string]ModuleRef `json:"exposes"`
}

// ModuleRef locates one exposed module.
type ModuleRef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Resolve looks up an exposed module path.
// "./TransferComponent" and "TransferComponent" refer to the same entry.
func (m Manifest) Resolve(path string) (ModuleRef, error) {
	if ref, ok := m.Exposes[path]; ok {
		return ref, nil
	}
	alt := "./" + strings.TrimPrefix(path, "./")
	if alt == path {
		alt = strings.TrimPrefix(path, "./")
	}
	if ref, ok := m.Exposes[alt]; ok {
		return ref, nil
	}
	return ModuleRef{}, fmt.Errorf("%w: %q in %q", ErrExposedModuleNotFound, path, m.Name)
}

// ResolveURL makes ref.URL absolute relative to the manifest location.
func (ref ModuleRef) ResolveURL(manifestURL string) (string, error) {
	target, err := url.Parse(ref.URL)
	if err != nil {
		return "", fmt.Errorf("parse module url: %w", err)
	}
	if target.IsAbs() {
		return target.String(), nil
	}
	base, err := url.Parse(manifestURL)
	if err != nil {
		return "", fmt.Errorf("parse manifest url: %w", err)
	}
	return base.ResolveReference(target).String(), nil
}
