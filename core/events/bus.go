// Package events provides the process-wide channel through which remotes
// announce domain events and the host reacts to them, without either side
// holding a reference to the other.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/rs/zerolog"
)

// DefaultMaxDepth bounds nested publishes of the same kind.
const DefaultMaxDepth = 8

// Channel errors.
var (
	ErrNilPayload       = errors.New("nil event payload")
	ErrUnknownKind      = errors.New("unknown event kind")
	ErrRecursivePublish = errors.New("recursive publish depth exceeded")
)

// Handler processes one event.
type Handler func(ctx context.Context, payload Payload) error

// Token identifies a subscription for removal.
type Token struct {
	kind Kind
	id   uint64
}

// Kind returns the event kind the subscription listens to.
func (t Token) Kind() Kind {
	return t.kind
}

type subscription struct {
	id      uint64
	handler Handler
}

// Channel is a synchronous publish/subscribe channel over a closed set of kinds.
type Channel struct {
	mu       sync.RWMutex
	subs     map[Kind][]subscription
	nextID   uint64
	maxDepth int
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// Option configures a Channel.
type Option func(*Channel)

// WithMaxDepth sets how deeply handlers may re-publish the same kind.
func WithMaxDepth(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithMetrics records publishes and handler failures.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Channel) {
		c.metrics = m
	}
}

// NewChannel creates an empty channel.
func NewChannel(logger zerolog.Logger, opts ...Option) *Channel {
	c := &Channel{
		subs:     make(map[Kind][]subscription),
		maxDepth: DefaultMaxDepth,
		logger:   logger.With().Str("component", "events").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers handler for kind and returns a removal token.
// Handlers for the same kind run in subscription order.
func (c *Channel) Subscribe(kind Kind, handler Handler) (Token, error) {
	if !Known(kind) {
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.subs[kind] = append(c.subs[kind], subscription{id: c.nextID, handler: handler})
	return Token{kind: kind, id: c.nextID}, nil
}

// Unsubscribe removes a subscription. It reports whether one was removed.
func (c *Channel) Unsubscribe(token Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subs[token.kind]
	for i, s := range subs {
		if s.id == token.id {
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			c.subs[token.kind] = next
			return true
		}
	}
	return false
}

// Publish delivers payload to every current subscriber of its kind,
// synchronously and in subscription order, on the calling goroutine.
// Nothing is buffered: later subscribers never see this payload.
// Handler errors and panics are logged and do not stop delivery.
func (c *Channel) Publish(ctx context.Context, payload Payload) error {
	if payload == nil {
		return ErrNilPayload
	}
	kind := payload.Kind()
	if !Known(kind) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	depth := depthFrom(ctx, kind)
	if depth >= c.maxDepth {
		c.logger.Error().
			Str("event", string(kind)).
			Int("depth", depth).
			Msg("dropping recursive publish")
		return fmt.Errorf("%w: %s at depth %d", ErrRecursivePublish, kind, depth)
	}
	ctx = withDepth(ctx, kind, depth+1)

	c.mu.RLock()
	subs := append([]subscription(nil), c.subs[kind]...)
	c.mu.RUnlock()

	c.logger.Debug().
		Str("event", string(kind)).
		Int("subscribers", len(subs)).
		Msg("event emitted")
	if c.metrics != nil {
		c.metrics.EventsPublished.WithLabelValues(string(kind)).Inc()
	}

	for _, s := range subs {
		c.deliver(ctx, kind, s, payload)
	}
	return nil
}

func (c *Channel) deliver(ctx context.Context, kind Kind, s subscription, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("event", string(kind)).
				Interface("panic", r).
				Msg("event handler panicked")
			c.handlerFailed(kind)
		}
	}()

	if err := s.handler(ctx, payload); err != nil {
		c.logger.Error().
			Err(err).
			Str("event", string(kind)).
			Msg("event handler error")
		c.handlerFailed(kind)
	}
}

func (c *Channel) handlerFailed(kind Kind) {
	if c.metrics != nil {
		c.metrics.EventHandlerErrors.WithLabelValues(string(kind)).Inc()
	}
}

// HasSubscribers reports whether any handler listens to kind.
func (c *Channel) HasSubscribers(kind Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs[kind]) > 0
}

// On subscribes a handler typed to a single payload variant.
func On[T Payload](c *Channel, handler func(ctx context.Context, payload T) error) (Token, error) {
	var zero T
	return c.Subscribe(zero.Kind(), func(ctx context.Context, payload Payload) error {
		typed, ok := payload.(T)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload type %T", zero.Kind(), payload)
		}
		return handler(ctx, typed)
	})
}

type depthKey struct{}

func depthFrom(ctx context.Context, kind Kind) int {
	depths, _ := ctx.Value(depthKey{}).(map[Kind]int)
	return depths[kind]
}

func withDepth(ctx context.Context, kind Kind, depth int) context.Context {
	prev, _ := ctx.Value(depthKey{}).(map[Kind]int)
	next := make(map[Kind]int, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[kind] = depth
	return context.WithValue(ctx, depthKey{}, next)
}
