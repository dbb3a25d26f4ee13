package remote

import (
	"context"
	"fmt"

	"github.com/artpar/fedshell/core/events"
	"github.com/artpar/fedshell/ports"
)

// EventBridge publishes events to a host over HTTP.
//
// API Contract:
//
//	POST /api/events
//	Header:   X-Fedshell-Signature (when a secret is configured)
//	Request:  {"kind": "transfer-success", "version": 1, "payload": {...}}
//	Response: 202 Accepted
type EventBridge struct {
	client *Client
	secret []byte
}

// NewEventBridge creates a bridge posting to the host behind client.
func NewEventBridge(client *Client, secret string) *EventBridge {
	return &EventBridge{client: client, secret: []byte(secret)}
}

// Publish encodes payload and posts it to the host.
func (b *EventBridge) Publish(ctx context.Context, payload events.Payload) error {
	body, err := events.Encode(payload)
	if err != nil {
		return err
	}

	headers := map[string]string{}
	if len(b.secret) > 0 {
		sig, err := events.Sign(b.secret, body)
		if err != nil {
			return fmt.Errorf("sign event: %w", err)
		}
		headers[events.SignatureHeader] = sig
	}

	if err := b.client.Post(ctx, "/api/events", body, headers); err != nil {
		return fmt.Errorf("bridge %s: %w", payload.Kind(), err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.Publisher = (*EventBridge)(nil)
