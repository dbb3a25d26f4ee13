// Package random provides Random implementations.
package random

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Real uses math/rand for probabilities and crypto/rand for strings.
type Real struct{}

// Float64 returns a pseudo-random number in [0, 1).
func (Real) Float64() float64 {
	return mrand.Float64()
}

// String generates n random base36 characters.
func (Real) String(n int) (string, error) {
	max := big.NewInt(int64(len(base36)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = base36[idx.Int64()]
	}
	return string(b), nil
}

// Fake provides deterministic randomness for testing.
type Fake struct {
	mu      sync.Mutex
	counter int
	floats  []float64 // Preset values returned by Float64
	index   int
}

// NewFake creates a fake random source.
func NewFake() *Fake {
	return &Fake{}
}

// WithFloats sets preset values for Float64, returned in order.
// Once exhausted, Float64 returns 0.5.
func (f *Fake) WithFloats(values ...float64) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.floats = values
	f.index = 0
	return f
}

// Float64 returns the next preset value.
func (f *Fake) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index < len(f.floats) {
		v := f.floats[f.index]
		f.index++
		return v
	}
	return 0.5
}

// String returns a deterministic base36 string based on an internal counter.
func (f *Fake) String(n int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[(f.counter+i)%len(base36)]
	}
	return string(b), nil
}

// Reset resets the fake to initial state.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter = 0
	f.index = 0
}
