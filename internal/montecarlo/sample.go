package montecarlo

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Source yields uniform values in [0, 1). Each worker owns its sources; they
// are never shared between goroutines.
type Source interface {
	Float64() float64
}

// SourceKind names a Source implementation.
type SourceKind string

const (
	SourcePCG SourceKind = "pcg"
	SourceLCG SourceKind = "lcg"
)

// ParseSourceKind accepts "pcg" or "lcg", case-insensitively.
func ParseSourceKind(s string) (SourceKind, error) {
	switch kind := SourceKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case SourcePCG, SourceLCG:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown random source %q", s)
	}
}

// SourceFactory builds the source for one chunk. Seeding per chunk keeps a run
// reproducible no matter which worker picks the chunk up.
type SourceFactory func(seed uint64, chunk int) Source

// NewSourceFactory returns the factory for kind.
func NewSourceFactory(kind SourceKind) (SourceFactory, error) {
	switch kind {
	case SourcePCG, "":
		return newPCG, nil
	case SourceLCG:
		return newLCG, nil
	default:
		return nil, fmt.Errorf("unknown random source %q", kind)
	}
}

func newPCG(seed uint64, chunk int) Source {
	return rand.New(rand.NewPCG(seed, uint64(chunk)))
}

// LCG is the 32-bit linear congruential generator x = x*1664525 + 1013904223.
// It is weak but identical on every platform, which makes it handy for
// regression baselines.
type LCG struct {
	state uint32
}

// NewLCG seeds an LCG directly.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

func newLCG(seed uint64, chunk int) Source {
	return NewLCG(uint32(seed) + 12345 + uint32(chunk)*67890)
}

// Float64 uses the low 31 bits of the state. Dividing by 2^31 rather than
// 2^31-1 keeps the result strictly below 1.
func (l *LCG) Float64() float64 {
	l.state = l.state*1664525 + 1013904223
	return float64(l.state&0x7FFFFFFF) / (1 << 31)
}

// Inside reports whether (x, y) lies in the unit quarter circle. Points on the
// boundary count as inside.
func Inside(x, y float64) bool {
	return x*x+y*y <= 1.0
}

// Sample draws one point from src and classifies it.
func Sample(src Source) bool {
	x := src.Float64()
	y := src.Float64()
	return Inside(x, y)
}
