// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/artpar/fedshell/ports"
	"github.com/google/uuid"
)

// UUID generates UUIDs.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Ensure interface compliance.
var _ ports.IDGenerator = UUID{}

// Transaction generates transfer identifiers of the form TXN-<unix-ms>-<9 base36 chars>.
type Transaction struct {
	Clock  ports.Clock
	Random ports.Random
}

// New generates a transaction ID.
func (g Transaction) New() string {
	suffix, err := g.Random.String(9)
	if err != nil {
		suffix = strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	}
	return "TXN-" + strconv.FormatInt(g.Clock.Now().UnixMilli(), 10) + "-" + suffix
}

// Ensure interface compliance.
var _ ports.IDGenerator = Transaction{}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Reset resets the counter (for testing).
func (s *Sequential) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
