package app

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/core/events"
	"github.com/artpar/fedshell/domain/transfer"
	"github.com/artpar/fedshell/ports"
	"github.com/rs/zerolog"
)

// Transfer retry defaults.
const (
	DefaultTransferRetries    = 3
	DefaultTransferRetryDelay = time.Second
)

// TransferDeps contains dependencies for TransferService.
type TransferDeps struct {
	Backend   ports.TransferBackend
	Publisher ports.Publisher
	Clock     ports.Clock
	Logger    zerolog.Logger
	Metrics   *metrics.Collector // optional
}

// TransferConfig contains configuration for TransferService.
type TransferConfig struct {
	Retries    int           // retries after the first attempt; 0 means DefaultTransferRetries, negative disables
	RetryDelay time.Duration // fixed delay between attempts; 0 means DefaultTransferRetryDelay
}

// TransferService submits transfers and announces the successful ones.
type TransferService struct {
	backend   ports.TransferBackend
	publisher ports.Publisher
	clock     ports.Clock
	logger    zerolog.Logger
	metrics   *metrics.Collector

	retries int
	delay   time.Duration
}

// NewTransferService creates a transfer service.
func NewTransferService(deps TransferDeps, cfg TransferConfig) *TransferService {
	retries := cfg.Retries
	switch {
	case retries == 0:
		retries = DefaultTransferRetries
	case retries < 0:
		retries = 0
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultTransferRetryDelay
	}
	return &TransferService{
		backend:   deps.Backend,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		logger:    deps.Logger.With().Str("component", "transfer").Logger(),
		metrics:   deps.Metrics,
		retries:   retries,
		delay:     delay,
	}
}

// Execute validates req and submits it, retrying transient failures with a
// fixed delay. There is no overall deadline beyond ctx.
// Once retries are exhausted the error is a *transfer.FailedError.
func (s *TransferService) Execute(ctx context.Context, req transfer.Request) (transfer.Result, error) {
	if err := transfer.Validate(req); err != nil {
		s.count("invalid")
		return transfer.Result{}, err
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if err := s.clock.Sleep(ctx, s.delay); err != nil {
				return transfer.Result{}, err
			}
		}

		attempts++
		result, err := s.backend.Execute(ctx, req)
		if err == nil {
			s.attempt("ok")
			s.count("success")
			s.logger.Info().
				Str("transaction_id", result.TransactionID).
				Str("amount", req.Amount.String()).
				Int("attempts", attempts).
				Msg("transfer completed")
			s.announce(ctx, req, result)
			return result, nil
		}

		s.attempt("error")
		lastErr = err
		if !errors.Is(err, transfer.ErrTransient) {
			break
		}
		s.logger.Warn().Err(err).Int("attempt", attempts).Msg("transfer attempt failed")
	}

	s.count("failed")
	s.logger.Error().Err(lastErr).Int("attempts", attempts).Msg("transfer failed")
	return transfer.Result{}, &transfer.FailedError{Attempts: attempts, Cause: lastErr}
}

func (s *TransferService) announce(ctx context.Context, req transfer.Request, result transfer.Result) {
	if s.publisher == nil {
		return
	}
	timestamp := result.Timestamp
	if timestamp.IsZero() {
		timestamp = s.clock.Now()
	}
	event := events.TransferSuccess{
		Amount:        req.Amount,
		Timestamp:     timestamp,
		TransactionID: result.TransactionID,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("transaction_id", result.TransactionID).Msg("transfer-success not delivered")
	}
}

func (s *TransferService) attempt(outcome string) {
	if s.metrics != nil {
		s.metrics.TransferAttempts.WithLabelValues(outcome).Inc()
	}
}

func (s *TransferService) count(outcome string) {
	if s.metrics != nil {
		s.metrics.Transfers.WithLabelValues(outcome).Inc()
	}
}
