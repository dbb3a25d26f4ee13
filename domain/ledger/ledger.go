// Package ledger holds the host-owned account balance.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// OverdraftPolicy decides what a debit below zero does.
type OverdraftPolicy string

// Overdraft policies.
const (
	OverdraftAllow  OverdraftPolicy = "allow"  // Balance may go negative
	OverdraftReject OverdraftPolicy = "reject" // Debit fails with ErrInsufficientFunds
	OverdraftClamp  OverdraftPolicy = "clamp"  // Balance floors at zero
)

// ParseOverdraftPolicy parses a policy name. Empty means allow.
func ParseOverdraftPolicy(s string) (OverdraftPolicy, error) {
	switch OverdraftPolicy(s) {
	case "", OverdraftAllow:
		return OverdraftAllow, nil
	case OverdraftReject:
		return OverdraftReject, nil
	case OverdraftClamp:
		return OverdraftClamp, nil
	}
	return "", fmt.Errorf("unknown overdraft policy %q", s)
}

// ErrInsufficientFunds is returned by Debit under OverdraftReject.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the single balance owned by the host. Safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	amount    decimal.Decimal
	policy    OverdraftPolicy
	formatter *Formatter
}

// New creates a ledger holding initial.
// A nil formatter uses DefaultFormatter.
func New(initial decimal.Decimal, policy OverdraftPolicy, f *Formatter) *Ledger {
	if f == nil {
		f = DefaultFormatter()
	}
	if policy == "" {
		policy = OverdraftAllow
	}
	return &Ledger{amount: initial, policy: policy, formatter: f}
}

// Credit adds amount to the balance and returns the new balance.
func (l *Ledger) Credit(amount decimal.Decimal) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.amount = l.amount.Add(amount)
	return l.amount
}

// Debit subtracts amount from the balance and returns the new balance.
// The amount is not validated; the overdraft policy only governs results below zero.
func (l *Ledger) Debit(amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.amount.Sub(amount)
	if next.IsNegative() {
		switch l.policy {
		case OverdraftReject:
			return l.amount, fmt.Errorf("%w: balance %s, debit %s", ErrInsufficientFunds, l.amount.StringFixed(2), amount.StringFixed(2))
		case OverdraftClamp:
			next = decimal.Zero
		}
	}
	l.amount = next
	return l.amount, nil
}

// Current returns the balance.
func (l *Ledger) Current() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.amount
}

// Formatted returns the balance formatted for display.
// It is derived on every call and never cached.
func (l *Ledger) Formatted() string {
	return l.formatter.Format(l.Current())
}

// Reset sets the balance back to initial.
func (l *Ledger) Reset(initial decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.amount = initial
}

// Policy returns the overdraft policy.
func (l *Ledger) Policy() OverdraftPolicy {
	return l.policy
}

// Formatter returns the display formatter.
func (l *Ledger) Formatter() *Formatter {
	return l.formatter
}
