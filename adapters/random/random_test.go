package random_test

import (
	"strings"
	"testing"

	"github.com/artpar/fedshell/adapters/random"
	"github.com/artpar/fedshell/ports"
)

var (
	_ ports.Random = random.Real{}
	_ ports.Random = (*random.Fake)(nil)
)

func isBase36(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", c) {
			return false
		}
	}
	return true
}

func TestReal_Float64(t *testing.T) {
	r := random.Real{}
	for i := 0; i < 1000; i++ {
		v := r.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %v out of range", v)
		}
	}
}

func TestReal_String(t *testing.T) {
	r := random.Real{}

	s, err := r.String(9)
	if err != nil {
		t.Fatalf("String failed: %v", err)
	}
	if len(s) != 9 {
		t.Errorf("expected 9 chars, got %d", len(s))
	}
	if !isBase36(s) {
		t.Errorf("non-base36 string %q", s)
	}
}

func TestReal_String_Unique(t *testing.T) {
	r := random.Real{}

	s1, _ := r.String(32)
	s2, _ := r.String(32)

	if s1 == s2 {
		t.Error("random strings should be different")
	}
}

func TestFake_Floats(t *testing.T) {
	f := random.NewFake().WithFloats(0.05, 0.95)

	if v := f.Float64(); v != 0.05 {
		t.Errorf("first = %v", v)
	}
	if v := f.Float64(); v != 0.95 {
		t.Errorf("second = %v", v)
	}
	if v := f.Float64(); v != 0.5 {
		t.Errorf("exhausted = %v, want 0.5", v)
	}

	f.Reset()
	if v := f.Float64(); v != 0.05 {
		t.Errorf("after reset = %v", v)
	}
}

func TestFake_StringDeterministic(t *testing.T) {
	a := random.NewFake()
	b := random.NewFake()

	sa, _ := a.String(9)
	sb, _ := b.String(9)
	if sa != sb {
		t.Errorf("fakes diverged: %q vs %q", sa, sb)
	}
	if !isBase36(sa) || len(sa) != 9 {
		t.Errorf("String(9) = %q", sa)
	}

	next, _ := a.String(9)
	if next == sa {
		t.Error("successive fake strings should differ")
	}
}
