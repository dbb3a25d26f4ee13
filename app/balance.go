package app

import (
	"context"
	"sync"

	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/core/events"
	"github.com/artpar/fedshell/domain/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxSeenTransactions bounds the duplicate-delivery window.
const maxSeenTransactions = 4096

// BalanceDeps contains dependencies for BalanceService.
type BalanceDeps struct {
	Channel *events.Channel
	Ledger  *ledger.Ledger
	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
}

// BalanceView is the balance as shown in the host header.
type BalanceView struct {
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
	Currency  string `json:"currency"`
}

// BalanceService keeps the host balance in step with transfer-success events.
type BalanceService struct {
	ledger  *ledger.Ledger
	channel *events.Channel
	logger  zerolog.Logger
	metrics *metrics.Collector
	token   events.Token

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// NewBalanceService subscribes to transfer-success exactly once.
func NewBalanceService(deps BalanceDeps) (*BalanceService, error) {
	s := &BalanceService{
		ledger:  deps.Ledger,
		channel: deps.Channel,
		logger:  deps.Logger.With().Str("component", "balance").Logger(),
		metrics: deps.Metrics,
		seen:    make(map[string]struct{}),
	}

	token, err := events.On(deps.Channel, s.onTransferSuccess)
	if err != nil {
		return nil, err
	}
	s.token = token
	s.observe()
	return s, nil
}

// Close stops listening for events.
func (s *BalanceService) Close() {
	s.channel.Unsubscribe(s.token)
}

// Current returns the current balance.
func (s *BalanceService) Current() decimal.Decimal {
	return s.ledger.Current()
}

// Formatted returns the balance formatted for display.
func (s *BalanceService) Formatted() string {
	return s.ledger.Formatted()
}

// View returns the balance for rendering.
func (s *BalanceService) View() BalanceView {
	current := s.ledger.Current()
	return BalanceView{
		Amount:    current.StringFixed(2),
		Formatted: s.ledger.Formatted(),
		Currency:  s.ledger.Formatter().Currency(),
	}
}

func (s *BalanceService) onTransferSuccess(ctx context.Context, e events.TransferSuccess) error {
	if !s.markSeen(e.TransactionID) {
		s.logger.Debug().Str("transaction_id", e.TransactionID).Msg("duplicate transfer ignored")
		return nil
	}

	previous := s.ledger.Current()
	current, err := s.ledger.Debit(e.Amount)
	if err != nil {
		s.count("debit", "rejected")
		return err
	}
	s.count("debit", "applied")
	s.observe()

	s.logger.Info().
		Str("transaction_id", e.TransactionID).
		Str("amount", e.Amount.String()).
		Str("previous", previous.String()).
		Str("balance", current.String()).
		Str("formatted", s.ledger.Formatted()).
		Msg("balance updated")
	return nil
}

func (s *BalanceService) markSeen(id string) bool {
	if id == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > maxSeenTransactions {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

func (s *BalanceService) count(direction, outcome string) {
	if s.metrics != nil {
		s.metrics.BalanceChanges.WithLabelValues(direction, outcome).Inc()
	}
}

func (s *BalanceService) observe() {
	if s.metrics != nil {
		f, _ := s.ledger.Current().Float64()
		s.metrics.Balance.Set(f)
	}
}
