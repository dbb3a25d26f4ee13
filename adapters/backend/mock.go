// Package backend provides transfer backends.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/fedshell/adapters/idgen"
	"github.com/artpar/fedshell/domain/transfer"
	"github.com/artpar/fedshell/ports"
)

// Mock defaults.
const (
	DefaultLatency     = 1500 * time.Millisecond
	DefaultFailureRate = 0.1
)

// MockConfig configures the simulated backend.
type MockConfig struct {
	Latency     time.Duration // 0 means DefaultLatency, negative disables
	FailureRate float64       // probability of a transient failure
}

// Mock simulates a bank backend with latency and random network errors.
// Failures are reported immediately; successes arrive after the latency.
type Mock struct {
	clock   ports.Clock
	random  ports.Random
	ids     ports.IDGenerator
	latency time.Duration
	failure float64
}

// NewMock creates a mock backend.
func NewMock(clock ports.Clock, random ports.Random, cfg MockConfig) *Mock {
	latency := cfg.Latency
	switch {
	case latency == 0:
		latency = DefaultLatency
	case latency < 0:
		latency = 0
	}
	return &Mock{
		clock:   clock,
		random:  random,
		ids:     idgen.Transaction{Clock: clock, Random: random},
		latency: latency,
		failure: cfg.FailureRate,
	}
}

// Execute implements ports.TransferBackend.
func (m *Mock) Execute(ctx context.Context, req transfer.Request) (transfer.Result, error) {
	if err := ctx.Err(); err != nil {
		return transfer.Result{}, err
	}
	if m.random.Float64() < m.failure {
		return transfer.Result{}, fmt.Errorf("%w: simulated network error", transfer.ErrTransient)
	}
	if m.latency > 0 {
		if err := m.clock.Sleep(ctx, m.latency); err != nil {
			return transfer.Result{}, err
		}
	}
	return transfer.Result{
		Success:       true,
		TransactionID: m.ids.New(),
		Timestamp:     m.clock.Now(),
		Message:       transfer.SuccessMessage,
	}, nil
}

var _ ports.TransferBackend = (*Mock)(nil)
