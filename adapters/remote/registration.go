package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// AccessorRegistration is the body a remote sends to publish its accessor.
type AccessorRegistration struct {
	FragmentURL string `json:"fragment_url"`
}

// AccessorResponse is returned by the host after registration.
type AccessorResponse struct {
	Remote   string `json:"remote"`
	Accessor string `json:"accessor"`
	ID       string `json:"id"`
}

// RegisterAccessor asks the host to serve name from fragmentURL when the
// manifest protocol is unavailable.
//
// API Contract:
//
//	POST /api/remotes/{name}/accessor
//	Request:  {"fragment_url": "http://localhost:4201/fragments/transfer"}
//	Response: {"remote": "mfe-transfers", "accessor": "getMfeTransfersComponent", "id": "..."}
func (c *Client) RegisterAccessor(ctx context.Context, name, fragmentURL string) (AccessorResponse, error) {
	var resp AccessorResponse
	path := "/api/remotes/" + url.PathEscape(name) + "/accessor"
	if err := c.Request(ctx, http.MethodPost, path, AccessorRegistration{FragmentURL: fragmentURL}, &resp); err != nil {
		return AccessorResponse{}, fmt.Errorf("register accessor: %w", err)
	}
	return resp, nil
}

// UnregisterAccessor removes a previously published accessor.
func (c *Client) UnregisterAccessor(ctx context.Context, name string) error {
	path := "/api/remotes/" + url.PathEscape(name) + "/accessor"
	if err := c.Request(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("unregister accessor: %w", err)
	}
	return nil
}
